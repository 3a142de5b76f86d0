package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// POSHandler -> websocket endpoint for table, bill and stock events
func POSHandler(c *gin.Context) {
	userName, _ := currentUser(c)
	if userName == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("Websocket upgrade failed for %s: %v", userName, err)
		return
	}

	h := hub.Default()
	h.Register(ws, userName)
	utils.InfoLogger.Printf("Websocket client connected: %s (%d online)", userName, h.ClientCount())

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.Unregister(ws)
}
