package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplates parses the embedded HTML templates for gin's renderer.
func PageTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// PageHandler serves the browser chat page.
type PageHandler struct {
	model      string
	socketPath string
}

func NewPageHandler(model, socketPath string) *PageHandler {
	return &PageHandler{model: model, socketPath: socketPath}
}

// Index renders the chat page. The transcript arrives over the websocket.
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":      "Gemini AI Chatbot",
		"Model":      h.model,
		"SocketPath": h.socketPath,
	})
}
