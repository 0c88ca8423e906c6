package bot

import (
	"io"
	"log/slog"
	"testing"

	telebot "gopkg.in/telebot.v3"
)

// fakeContext implements just the telebot.Context methods the router touches.
type fakeContext struct {
	telebot.Context
	callback  *telebot.Callback
	text      string
	responded bool
}

func (f *fakeContext) Callback() *telebot.Callback { return f.callback }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.responded = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_Route_Command(t *testing.T) {
	r := NewRouter(testLogger())

	var gotStart bool
	r.RegisterCommand("/start", func(c telebot.Context) error {
		gotStart = true
		return nil
	})

	if err := r.Route(&fakeContext{text: "/start"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotStart {
		t.Fatal("expected /start handler to run")
	}
}

func TestRouter_Route_CommandWithArguments(t *testing.T) {
	r := NewRouter(testLogger())

	var gotStart bool
	r.RegisterCommand("/start", func(c telebot.Context) error {
		gotStart = true
		return nil
	})

	if err := r.Route(&fakeContext{text: "/start ref_code_123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotStart {
		t.Fatal("expected /start handler to run with arguments present")
	}
}

func TestRouter_Route_UnknownCommand(t *testing.T) {
	r := NewRouter(testLogger())

	// Unknown commands are dropped silently.
	if err := r.Route(&fakeContext{text: "/frobnicate"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRouter_Route_Text(t *testing.T) {
	r := NewRouter(testLogger())

	var gotText string
	r.SetTextHandler(func(c telebot.Context) error {
		gotText = c.Text()
		return nil
	})

	if err := r.Route(&fakeContext{text: "yes"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotText != "yes" {
		t.Fatalf("expected text handler to receive %q, got %q", "yes", gotText)
	}
}

func TestRouter_Route_Callback(t *testing.T) {
	r := NewRouter(testLogger())

	var gotCallback bool
	r.RegisterCallback("start_confirm_yes", func(c telebot.Context) error {
		gotCallback = true
		return nil
	})

	// telebot prefixes unique callback data with "\f".
	c := &fakeContext{callback: &telebot.Callback{Data: "\fstart_confirm_yes"}}
	if err := r.Route(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotCallback {
		t.Fatal("expected callback handler to run")
	}
}

func TestRouter_Route_UnknownCallback(t *testing.T) {
	r := NewRouter(testLogger())

	c := &fakeContext{callback: &telebot.Callback{Data: "launch_missiles"}}
	if err := r.Route(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.responded {
		t.Fatal("expected unknown callback to be acknowledged")
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	r := NewRouter(testLogger())

	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(c telebot.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	r.Use(mw("outer"))
	r.Use(mw("inner"))
	r.RegisterCommand("/start", func(c telebot.Context) error {
		order = append(order, "handler")
		return nil
	})

	if err := r.Route(&fakeContext{text: "/start"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}
