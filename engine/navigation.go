package engine

// Route is a screen the client should show.
type Route string

const (
	RouteRooms      Route = "/board/rooms"
	RouteLoose      Route = "/board/loose-page"
	RouteSessionEnd Route = "/board/session-end"
	RouteSuccess    Route = "/board/success-page"
	RouteMainMenu   Route = "/main/main-menu"
)

// Navigator moves the client to a route. It is called on the stream loop and
// must not block.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route Route)

func (f NavigatorFunc) Navigate(route Route) { f(route) }
