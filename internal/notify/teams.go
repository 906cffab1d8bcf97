package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Teams posts a MessageCard to an incoming webhook.
type Teams struct {
	Webhook string
	Client  *http.Client
}

func NewTeams(cfg domain.TeamsConfig, client *http.Client) *Teams {
	if !cfg.Configured() {
		return nil
	}
	return &Teams{Webhook: cfg.WebhookURL, Client: client}
}

func (t *Teams) Channel() domain.Channel { return domain.ChannelTeams }

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle string      `json:"activityTitle"`
	Facts         []teamsFact `json:"facts"`
	Markdown      bool        `json:"markdown"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Sections   []teamsSection `json:"sections"`
}

func (t *Teams) Send(ctx context.Context, a Alert) error {
	if t == nil || t.Webhook == "" {
		return errors.New("teams disabled")
	}
	color := "2EB886"
	if a.Status == domain.StatusDown {
		color = "D63333"
	}
	facts := make([]teamsFact, 0, 7)
	for _, kv := range a.Fields() {
		facts = append(facts, teamsFact{Name: kv[0], Value: kv[1]})
	}
	return postJSON(ctx, t.Client, t.Webhook, teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: color,
		Summary:    a.Title(),
		Sections:   []teamsSection{{ActivityTitle: a.Title(), Facts: facts, Markdown: true}},
	})
}
