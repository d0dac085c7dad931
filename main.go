package main

import (
	"socketDraw/cmd/app"
)

// @title           socketDraw API
// @version         1.0
// @description     Realtime collaborative whiteboard backend.

// @host      localhost:8000
// @BasePath  /api
func main() {
	app.GetApp().LetsGo()
}
