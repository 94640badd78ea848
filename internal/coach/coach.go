// Package coach provides the canned financial coaching assistant. Responses
// are scripted in French and matched against a small set of quick actions;
// free-form questions get a generic acknowledgement.
package coach

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hegrove/Serenity-Budget/internal/common"
)

// Message is one turn of a coaching conversation.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
}

// QuickAction is a suggested prompt the caller can present to the user.
type QuickAction struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

const greeting = "Bonjour ! Je suis votre coach financier personnel. Comment puis-je vous aider aujourd'hui ?"

const genericResponse = "Excellente question ! Basé sur vos habitudes de dépenses, je peux vous suggérer plusieurs stratégies..."

var quickActions = []QuickAction{
	{
		ID:          "reduce-outings",
		Title:       "Et si je réduisais mes sorties ?",
		Description: "Simuler une réduction des dépenses sorties",
	},
	{
		ID:          "optimize-food",
		Title:       "Optimiser mon budget alimentation",
		Description: "Conseils pour mieux gérer l'alimentation",
	},
	{
		ID:          "reach-goal",
		Title:       "Atteindre mon objectif plus vite",
		Description: "Stratégies d'épargne personnalisées",
	},
}

var quickActionResponses = map[string]string{
	"reduce-outings": "Si vous réduisez vos sorties de 30%, vous pourriez économiser environ 45€ par mois. Cela vous permettrait d'atteindre votre objectif vacances 2 mois plus tôt !",
	"optimize-food":  "Voici 3 conseils pour optimiser votre budget alimentation : 1) Planifiez vos repas à l'avance, 2) Utilisez des listes de courses, 3) Profitez des promotions sur les produits de base.",
	"reach-goal":     "Pour atteindre votre objectif plus rapidement, je recommande d'automatiser un virement de 50€ chaque début de mois et de réduire vos achats impulsifs de 20%.",
}

// Coach holds a conversation with scripted responses.
type Coach struct {
	messages []Message
}

// New creates a coach with the opening greeting already in the transcript.
func New() *Coach {
	c := &Coach{}
	c.appendMessage(greeting, false)
	return c
}

// QuickActions returns the suggested prompts.
func (c *Coach) QuickActions() []QuickAction {
	actions := make([]QuickAction, len(quickActions))
	copy(actions, quickActions)
	return actions
}

// Messages returns the conversation so far, oldest first.
func (c *Coach) Messages() []Message {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}

// Ask records the question and returns the coach's reply. Questions matching
// a quick action title get that action's scripted answer.
func (c *Coach) Ask(ctx context.Context, question string) (Message, error) {
	if ctx == nil {
		return Message{}, common.ErrValidation
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, common.NewUserError("La question ne peut pas être vide", common.ErrValidation)
	}

	c.appendMessage(question, true)

	response := genericResponse
	for _, action := range quickActions {
		if strings.EqualFold(question, action.Title) {
			response = quickActionResponses[action.ID]
			break
		}
	}
	return c.appendMessage(response, false), nil
}

// RunQuickAction records the action's title as a user message and returns
// the scripted answer.
func (c *Coach) RunQuickAction(ctx context.Context, actionID string) (Message, error) {
	if ctx == nil {
		return Message{}, common.ErrValidation
	}
	response, ok := quickActionResponses[actionID]
	if !ok {
		return Message{}, common.NewUserError("Action rapide inconnue", common.ErrNotFound)
	}

	for _, action := range quickActions {
		if action.ID == actionID {
			c.appendMessage(action.Title, true)
			break
		}
	}
	return c.appendMessage(response, false), nil
}

func (c *Coach) appendMessage(text string, isUser bool) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}
