package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Handler processes a bot update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Router dispatches commands, confirmation callbacks, and free text.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]Handler
	callbacks   map[string]Handler
	textHandler Handler
	middlewares []Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:  make(map[string]Handler),
		callbacks: make(map[string]Handler),
		log:       log,
	}
}

// RegisterCommand registers a handler for a slash command.
func (r *Router) RegisterCommand(cmd string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// RegisterCallback registers a handler for an exact callback identifier.
func (r *Router) RegisterCallback(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[name] = h
}

// SetTextHandler sets the handler for non-command text messages.
func (r *Router) SetTextHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textHandler = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if callback := c.Callback(); callback != nil {
		return r.handleCallback(c, callback.Data)
	}

	return r.handleMessage(c)
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	// telebot prefixes callback data with "\f" for unique handlers; our
	// buttons carry plain data.
	name := strings.TrimPrefix(strings.TrimSpace(data), "\f")

	r.mu.RLock()
	handler := r.callbacks[name]
	r.mu.RUnlock()

	if handler == nil {
		r.log.Info("no callback handler found", slog.String("data", name))
		return c.Respond(&telebot.CallbackResponse{})
	}

	return r.execute(handler, c)
}

func (r *Router) handleMessage(c telebot.Context) error {
	text := c.Text()

	if strings.HasPrefix(text, "/") {
		command := strings.Fields(text)[0]

		r.mu.RLock()
		handler := r.commands[command]
		r.mu.RUnlock()

		if handler != nil {
			return r.execute(handler, c)
		}

		r.log.Info("unknown command", slog.String("command", command))
		return nil
	}

	r.mu.RLock()
	handler := r.textHandler
	r.mu.RUnlock()

	if handler == nil {
		return nil
	}

	return r.execute(handler, c)
}

func (r *Router) execute(h Handler, c telebot.Context) error {
	r.mu.RLock()
	middlewares := make([]Middleware, len(r.middlewares))
	copy(middlewares, r.middlewares)
	r.mu.RUnlock()

	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped(c)
}
