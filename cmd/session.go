////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gitlab.com/elixxir/ekv"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/elixxir/deskchat/chat"
	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/connection/loopback"
	"gitlab.com/elixxir/deskchat/dispatch"
	"gitlab.com/elixxir/deskchat/emoji"
	"gitlab.com/elixxir/deskchat/event"
	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/notifications"
	"gitlab.com/elixxir/deskchat/readstate"
	"gitlab.com/elixxir/deskchat/stoppable"
	"gitlab.com/elixxir/deskchat/storage/versioned"
)

const (
	shutdownTimeout = 5 * time.Second
	emoticonsKey    = "emoticons"
	viewListener    = "terminalView"
	helpText        = `Commands:
  /room <id>           join a room and show it
  /dm <id>             open a direct chat and show it
  /list                list open chats
  /show <n>            show chat n from /list
  /up [n], /down [n]   scroll the view
  /rejoin              rejoin the shown chat
  /leave               close the shown chat
  /react <emoji>       send a single emoji
  /inject <from> <msg> simulate an inbound message in the shown chat
  /drop                simulate a dropped connection for the shown chat
  /quit                exit
Anything else is sent to the shown chat.
`
)

var (
	chatDefaults         = chat.GetDefaultParams()
	readstateDefaults    = readstate.GetDefaultParams()
	notificationDefaults = notifications.GetDefaultParams()
)

// sessionConfig holds the settings of an interactive session.
type sessionConfig struct {
	rooms  []string
	peers  []string
	chat   chat.Params
	read   readstate.Params
	notify notifications.Params
	window int

	// emoticons are extra shortcodes from the config file
	emoticons map[string]string
}

// configFromViper builds the session settings from flags and config file.
func configFromViper() sessionConfig {
	cfg := sessionConfig{
		rooms:  viper.GetStringSlice(roomFlag),
		peers:  viper.GetStringSlice(peerFlag),
		chat:   chat.GetDefaultParams(),
		read:   readstate.GetDefaultParams(),
		notify: notifications.GetDefaultParams(),
		window: viper.GetInt(windowFlag),

		emoticons: viper.GetStringMapString(emoticonsKey),
	}
	cfg.chat.HistoryDir = viper.GetString(historyFlag)
	cfg.chat.HistoryLimit = viper.GetInt(historyLimitFlag)
	cfg.chat.RestoreRate = viper.GetInt(restoreRateFlag)
	cfg.read.Delay = viper.GetDuration(readDelayFlag)
	cfg.notify.DismissDelay = viper.GetDuration(notifyDelayFlag)
	cfg.notify.DisplayLimit = viper.GetInt(notifyLimitFlag)
	return cfg
}

// runSession opens the key-value store and runs an interactive session over
// an offline loopback connection.
func runSession(in io.Reader, out io.Writer) error {
	storeDir := viper.GetString(sessionFlag)
	fs, err := ekv.NewFilestore(storeDir, viper.GetString(passwordFlag))
	if err != nil {
		return errors.Wrapf(err, "failed to open session storage %s", storeDir)
	}

	net := loopback.New(viper.GetString(userFlag))
	net.SetEcho(viper.GetBool(echoFlag))

	s, err := newSession(net, versioned.NewKV(fs), out, configFromViper())
	if err != nil {
		return err
	}
	return s.run(in)
}

// session wires the chat core to the terminal.
type session struct {
	term *terminal
	net  *loopback.Network
	cfg  sessionConfig

	loop     *dispatch.Loop
	events   event.Manager
	services *stoppable.Multi
	notifier *notifications.Aggregator
	manager  *chat.Manager
	view     *terminalView
	tracker  *readstate.Tracker
}

// newSession starts the dispatch loop and event service and creates the chat
// manager. The emoji set and the notification aggregator exist before the
// manager.
func newSession(net *loopback.Network, kv *versioned.KV, out io.Writer,
	cfg sessionConfig) (*session, error) {
	s := &session{
		term:     &terminal{w: out},
		net:      net,
		cfg:      cfg,
		loop:     dispatch.NewLoop("ui"),
		services: stoppable.NewMulti("session"),
	}
	s.services.Add(s.loop.Start())

	s.events = event.NewEventManager()
	err := s.events.RegisterEventCallback("terminal",
		func(priority int, category, evtType, details string) {
			if priority >= event.Warning {
				s.term.Printf("! %s %s: %s\n", category, evtType, details)
			}
		})
	if err != nil {
		return nil, err
	}
	eventStop, err := s.events.EventService()
	if err != nil {
		return nil, err
	}
	s.services.Add(eventStop)

	emojis := emoji.Load()
	for slug, character := range cfg.emoticons {
		emojis.Add(slug, character)
	}
	s.notifier = notifications.NewAggregator(newPopupFactory(s.term), cfg.notify)
	s.manager = chat.NewManager(net, kv, s.loop, s.notifier, emojis, s.events,
		cfg.chat)

	s.view = newTerminalView(s.term, cfg.window)
	s.tracker = readstate.NewTracker(s.view, s.loop, cfg.read)

	return s, nil
}

// run restores the recent chats, joins the configured ones and processes
// commands until the input ends or /quit.
func (s *session) run(in io.Reader) error {
	restored, err := s.manager.Restore()
	if err != nil {
		jww.ERROR.Printf("Failed to restore chats: %+v", err)
	}

	for _, id := range s.cfg.rooms {
		s.activate(s.manager.Room(id))
	}
	for _, id := range s.cfg.peers {
		s.activate(s.manager.Direct(id))
	}

	if targets := s.manager.Targets(); len(targets) > 0 {
		s.show(targets[0])
	}
	jww.INFO.Printf("Session started with %d restored chats", len(restored))
	s.term.Printf("%s", helpText)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !s.handle(strings.TrimSpace(scanner.Text())) {
			break
		}
	}
	if err = scanner.Err(); err != nil {
		jww.ERROR.Printf("Failed to read input: %+v", err)
	}

	return s.close()
}

// handle runs one input line. Returns false on /quit.
func (s *session) handle(line string) bool {
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		s.send(line)
		return true
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit":
		return false
	case "/help":
		s.term.Printf("%s", helpText)
	case "/room", "/dm":
		if len(args) != 1 {
			s.term.Printf("usage: %s <id>\n", cmd)
			break
		}
		var t chat.Target
		if cmd == "/room" {
			t = s.manager.Room(args[0])
		} else {
			t = s.manager.Direct(args[0])
		}
		s.activate(t)
		s.show(t)
	case "/list":
		s.list()
	case "/show":
		s.showIndex(args)
	case "/up", "/down":
		n := 1
		if len(args) == 1 {
			n = parseCount(args[0])
		}
		if cmd == "/down" {
			n = -n
		}
		s.view.scroll(n)
		s.tracker.VisibilityChanged()
	case "/rejoin":
		if t := s.current(); t != nil {
			if err := t.Rejoin(s.net); err != nil {
				s.term.Printf("rejoin failed: %v\n", err)
			}
		}
	case "/leave":
		if t := s.current(); t != nil {
			if err := s.manager.Remove(t); err != nil {
				s.term.Printf("leave failed: %v\n", err)
			}
			var next chat.Target
			if targets := s.manager.Targets(); len(targets) > 0 {
				next = targets[0]
			}
			s.show(next)
		}
	case "/react":
		if len(args) != 1 {
			s.term.Printf("usage: /react <emoji>\n")
			break
		}
		if err := emoji.ValidateReaction(args[0]); err != nil {
			s.term.Printf("%v\n", err)
			break
		}
		s.send(args[0])
	case "/inject":
		s.inject(args)
	case "/drop":
		if t := s.current(); t != nil {
			s.net.Drop(t.ID(), nil)
		}
	default:
		s.term.Printf("unknown command %s, try /help\n", cmd)
	}
	return true
}

func (s *session) current() chat.Target {
	t := s.view.target()
	if t == nil {
		s.term.Printf("no chat open\n")
	}
	return t
}

func (s *session) activate(t chat.Target) {
	if err := s.manager.Activate(t); err != nil {
		s.term.Printf("join %s failed: %v\n", t.ID(), err)
	}
}

// show displays t and prints messages added to it while it is shown.
func (s *session) show(t chat.Target) {
	if old := s.view.target(); old != nil {
		old.Messages().RemoveListener(viewListener)
	}

	s.view.show(t)
	if t == nil {
		return
	}

	err := t.Messages().AddListener(viewListener, func(e message.Event) {
		if e.Kind == message.Added {
			s.term.Printf("%s\n", formatMessage(e.Message))
		}
	})
	if err != nil {
		jww.WARN.Printf("Failed to follow %s: %+v", t.ID(), err)
	}
	s.tracker.VisibilityChanged()
}

func (s *session) showIndex(args []string) {
	targets := s.manager.Targets()
	if len(args) != 1 {
		s.term.Printf("usage: /show <n>\n")
		return
	}
	i := parseCount(args[0])
	if i < 1 || i > len(targets) {
		s.term.Printf("no chat %s\n", args[0])
		return
	}
	s.show(targets[i-1])
}

func (s *session) list() {
	shown := s.view.target()
	for i, t := range s.manager.Targets() {
		marker := " "
		if t == shown {
			marker = ">"
		}
		owned := ""
		if rc, ok := t.(*chat.RoomChat); ok && rc.IsOwner() {
			owned = " (owner)"
		}
		s.term.Printf("%s%d. %s %s%s [%s] %d unread\n", marker, i+1, t.Kind(),
			t.Title(), owned, t.State(), t.UnreadCount())
	}
}

func (s *session) send(text string) {
	t := s.current()
	if t == nil {
		return
	}
	if err := t.SendMessage(text); err != nil {
		s.term.Printf("send failed: %v\n", err)
	}
}

func (s *session) inject(args []string) {
	t := s.current()
	if t == nil {
		return
	}
	if len(args) < 2 {
		s.term.Printf("usage: /inject <from> <message>\n")
		return
	}

	st := connection.Stanza{
		Kind: connection.Chat,
		From: args[0],
		Body: strings.Join(args[1:], " "),
	}
	if t.Kind() == chat.Room {
		st.Kind = connection.GroupChat
		st.Timestamp = netTime.Now()
	}
	if s.net.Deliver(t.ID(), st) == 0 {
		s.term.Printf("%s has no open session\n", t.ID())
	}
}

// close shuts everything down in reverse order of creation.
func (s *session) close() error {
	s.tracker.Close()
	err := s.manager.Close()
	s.notifier.Close()

	if closeErr := s.services.Close(); closeErr != nil {
		jww.WARN.Printf("Failed to stop %s: %+v", s.services.Name(), closeErr)
	} else if waitErr := stoppable.WaitForStopped(s.services,
		shutdownTimeout); waitErr != nil {
		jww.WARN.Printf("%+v", waitErr)
	}
	return err
}

// parseCount parses a count argument, returning 0 if it is not a number.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
