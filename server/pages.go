package server

import (
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/markdown"
	"github.com/malonaz/polychat/internal/store"
	"github.com/malonaz/polychat/internal/types"
)

type PageData struct {
	Title    string
	Query    string
	ShowBack bool
	Session  *types.Session
	Sessions []*types.Session
}

func (s *Server) handleInbox(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	sessions := s.store.List()
	if query != "" {
		sessions = filterSessions(sessions, query)
	}
	c.HTML(http.StatusOK, "base", &PageData{
		Title:    "Inbox",
		Query:    query,
		Sessions: sessions,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	session, err := s.store.Get(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.String(status, err.Error())
		return
	}
	c.HTML(http.StatusOK, "base", &PageData{
		Title:    session.Title,
		ShowBack: true,
		Session:  session,
	})
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// filterSessions keeps the sessions whose title or turns contain the query, ignoring case.
func filterSessions(sessions []*types.Session, query string) []*types.Session {
	query = strings.ToLower(query)
	var filtered []*types.Session
	for _, session := range sessions {
		if strings.Contains(strings.ToLower(session.Title), query) {
			filtered = append(filtered, session)
			continue
		}
		for _, turn := range session.Turns {
			if strings.Contains(strings.ToLower(turn.Content), query) {
				filtered = append(filtered, session)
				break
			}
		}
	}
	return filtered
}

// formatMessage renders code blocks as <pre> elements and escapes everything else.
func formatMessage(content string) template.HTML {
	var sb strings.Builder
	for _, segment := range markdown.Split(content) {
		if segment.Code {
			fmt.Fprintf(&sb, `<pre><code class="language-%s">%s</code></pre>`,
				html.EscapeString(segment.Language), html.EscapeString(segment.Text))
			continue
		}
		text := html.EscapeString(strings.Trim(segment.Text, "\n"))
		sb.WriteString(`<p>` + strings.ReplaceAll(text, "\n", "<br>") + `</p>`)
	}
	return template.HTML(sb.String())
}
