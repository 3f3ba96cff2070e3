package main

import (
	"bufio"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/network"
)

const usage = `commands:
  create             create a game and join it
  join <game id>     join an existing game
  leave              leave the current game
  setup              deal a new board
  guess <id>         accuse a character
  menu               go back to the main menu
  settings <rooms> <characters> <lives> <seconds> <end>
  ping               send a heartbeat`

func main() {
	addr := flag.String("addr", "localhost:8080", "game server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	conn := network.NewWSConnection(c)
	defer conn.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			packet, err := conn.ReadPacket()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	log.Println("Client started.\n" + usage)

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := handleLine(conn, strings.Fields(line)); err != nil {
				log.Println("Error:", err)
			}
		}
	}
}

func handleLine(conn network.Connection, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "create":
		return conn.Send(network.MsgTypeCreateGame, nil)
	case "join":
		if len(fields) != 2 {
			log.Println(usage)
			return nil
		}
		return network.SendJSON(conn, network.MsgTypeJoinGame, network.GameRef{GameID: fields[1]})
	case "leave":
		return conn.Send(network.MsgTypeLeaveGame, nil)
	case "setup":
		return network.SendJSON(conn, network.MsgTypeDispatch, actions.NewSetupBoard())
	case "guess":
		if len(fields) != 2 {
			log.Println(usage)
			return nil
		}
		return network.SendJSON(conn, network.MsgTypeDispatch, actions.NewGuessMurderer(fields[1]))
	case "menu":
		return network.SendJSON(conn, network.MsgTypeDispatch, actions.NewNavToMainMenu())
	case "settings":
		settings, err := parseSettings(fields[1:])
		if err != nil {
			return err
		}
		return network.SendJSON(conn, network.MsgTypeDispatch, actions.NewUpdateSettings(settings))
	case "ping":
		return conn.Send(network.MsgTypeHeartbeat, nil)
	default:
		log.Println(usage)
		return nil
	}
}

func parseSettings(args []string) (models.Settings, error) {
	if len(args) != 5 {
		return models.Settings{}, models.ErrInvalidSettings
	}
	values := make([]int, len(args))
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return models.Settings{}, err
		}
		values[i] = v
	}
	settings := models.Settings{
		NumberOfRooms:         values[0],
		NumberOfCharacters:    values[1],
		Lives:                 models.Lives(values[2]),
		SessionTime:           time.Duration(values[3]) * time.Second,
		CharactersToEndOfGame: values[4],
	}
	return settings, settings.Validate()
}
