package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	packet, err := Encode(MsgTypeNavigate, []byte(`{"route":"/board/rooms"}`))
	require.NoError(t, err)

	decoded, err := Decode(packet)
	require.NoError(t, err)
	require.Equal(t, uint16(MsgTypeNavigate), decoded.MsgID)
	require.Equal(t, `{"route":"/board/rooms"}`, string(decoded.Data))
	require.Equal(t, uint16(len(decoded.Data)), decoded.Length)
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode([]byte{0, 1})
	require.ErrorIs(t, err, io.ErrShortBuffer)

	// Header claims five bytes, body has two.
	_, err = Decode([]byte{0, 1, 0, 5, 'h', 'i'})
	require.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestEncode_TooLarge(t *testing.T) {
	_, err := Encode(MsgTypeBoardState, make([]byte, 1<<16))
	require.Error(t, err)
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws := NewWSConnection(conn)
		defer ws.Close()
		packet, err := ws.ReadPacket()
		if err != nil {
			return
		}
		_ = SendJSON(ws, packet.MsgID, NavigateMessage{Route: string(packet.Data)})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	client := NewWSConnection(conn)
	defer client.Close()

	require.NoError(t, client.Send(MsgTypeDispatch, []byte("echo")))
	packet, err := client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, uint16(MsgTypeDispatch), packet.MsgID)
	require.JSONEq(t, `{"route":"echo"}`, string(packet.Data))
}
