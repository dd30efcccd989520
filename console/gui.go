package console

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// COMMAND_BACKLOG is how many entered commands may wait for the session.
const COMMAND_BACKLOG = 16

// Gui is a full screen console: code, registers, output and status
// views, and a command prompt.
type Gui struct {
	g        *gocui.Gui  // main gocui GUI object
	commands chan string // entered command lines
}

var _ Display = (*Gui)(nil)

// NewGui returns a new console on the gocui GUI, and binds its keys.
func NewGui(g *gocui.Gui) (c *Gui, err error) {
	c = &Gui{
		g:        g,
		commands: make(chan string, COMMAND_BACKLOG),
	}

	g.Cursor = true
	g.SetManagerFunc(c.layout)

	err = g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit)
	if err != nil {
		return
	}

	err = g.SetKeybinding("prompt", gocui.KeyEnter, gocui.ModNone, c.enter)
	if err != nil {
		return
	}

	return
}

// Commands returns the channel of entered command lines.
func (c *Gui) Commands() <-chan string {
	return c.commands
}

// Quit asks the GUI main loop to exit.
func (c *Gui) Quit() {
	c.g.Update(func(g *gocui.Gui) error {
		return gocui.ErrQuit
	})
}

// gocui layout
func (c *Gui) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	views := []struct {
		name           string
		title          string
		x0, y0, x1, y1 int
	}{
		{"code", "Code", 0, 0, maxX/2 - 1, maxY - 10},
		{"registers", "Registers", maxX / 2, 0, maxX - 1, maxY / 2},
		{"output", "Output", maxX / 2, maxY/2 + 1, maxX - 1, maxY - 10},
		{"status", "Status", 0, maxY - 9, maxX - 1, maxY - 4},
		{"prompt", "Command", 0, maxY - 3, maxX - 1, maxY - 1},
	}

	for _, view := range views {
		v, err := g.SetView(view.name, view.x0, view.y0, view.x1, view.y1)
		if err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = view.title
			switch view.name {
			case "status":
				v.Autoscroll = true
			case "output":
				v.Wrap = true
			case "prompt":
				v.Editable = true
				_, err = g.SetCurrentView("prompt")
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// enter hands the prompt line to the session.
func (c *Gui) enter(g *gocui.Gui, v *gocui.View) error {
	line := strings.TrimSpace(v.Buffer())
	v.Clear()
	err := v.SetCursor(0, 0)
	if err != nil {
		return err
	}

	select {
	case c.commands <- line:
	default:
		c.Status(f("busy, command %q dropped", line))
	}

	return nil
}

// Update redraws the machine views.
func (c *Gui) Update(snap Snapshot) {
	c.g.Update(func(g *gocui.Gui) error {
		v, err := g.View("code")
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, snap.Code)
		_, height := v.Size()
		for n, line := range strings.Split(snap.Code, "\n") {
			if strings.HasPrefix(line, "> ") {
				err = v.SetOrigin(0, max(n-height/2, 0))
				if err != nil {
					return err
				}
				break
			}
		}

		v, err = g.View("registers")
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, snap.Registers)

		v, err = g.View("output")
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, snap.Output)

		return nil
	})
}

// Status appends a message to the status view.
func (c *Gui) Status(text string) {
	c.g.Update(func(g *gocui.Gui) error {
		v, err := g.View("status")
		if err != nil {
			return err
		}
		for _, line := range strings.Split(text, "\n") {
			if line != "" {
				fmt.Fprintln(v, line)
			}
		}
		return nil
	})
}

// Prompt is a no-op; the prompt view is always present.
func (c *Gui) Prompt() {
}
