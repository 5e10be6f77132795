package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vx2/audio"
	"vx2/beep"
	"vx2/hotkey"
	"vx2/log"
	"vx2/monitor"
	"vx2/ptt"
	"vx2/session"
)

var testEndpoints = []string{"COM_TEST", "/dev/ttyFAKE0"}

// headless prints everything the panel would show, one event per line.
type headless struct{ w io.Writer }

func (h headless) Status(s session.Status) {
	tone := [...]string{"info", "ok", "error"}[s.Tone]
	fmt.Fprintf(h.w, "STATUS %s %s\n", tone, s.Text)
}

func (h headless) ShowFrame(f monitor.Frame) {
	fmt.Fprintf(h.w, "FRAME %d %d\n", f.Index, len(f.Samples))
}

func runTestMode(opts options, wavPath string) int {
	beep.Disable()

	pcm := audio.Tone(opts.sampleRate, 440, int(opts.sampleRate))
	if wavPath != "" {
		var rate uint32
		var err error
		pcm, rate, err = audio.LoadWAV(wavPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			return 1
		}
		opts.sampleRate = rate
	}

	opener := ptt.NewFakeOpener(testEndpoints...)
	fakeCtx := audio.NewFakeContext(pcm, false)
	ctl := session.New(session.Config{
		Keyer:    ptt.NewKeyer(opener.Open, opts.line),
		Registry: opener,
		Pipeline: monitor.NewPipeline(fakeCtx, nil),
		Capture:  opts.capture(nil),
		Dest:     opts.out,
		Display:  headless{os.Stdout},
	})
	log.SessionStart(opts.port, opts.line.String(), opts.sampleRate, opts.frameSize, opts.out)

	hk := hotkey.NewFake()
	hy := hotkey.NewHybrid(hk, opts.longPress)
	defer hy.Close()

	// Stdin driver in background; the loop below is the only goroutine
	// touching the controller, as in the TUI.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	if opts.port != "" {
		ctl.Connect(opts.port)
	}

	onHotkey := func(ev hotkey.Event) {
		log.Info("hotkey_" + string(ev.Mode))
		ctl.KeyPTT(ev.Keyed)
	}

	for {
		select {
		case ev := <-hy.Events():
			onHotkey(ev)
		case cmd, ok := <-lines:
			if !ok || cmd == "QUIT" {
				ctl.Shutdown()
				return 0
			}
			if ms, found := strings.CutPrefix(cmd, "SLEEP "); found {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
				// Apply hotkey events that arrived while sleeping before
				// the next command runs.
				for pending := true; pending; {
					select {
					case ev := <-hy.Events():
						onHotkey(ev)
					default:
						pending = false
					}
				}
				continue
			}
			runTestCommand(cmd, ctl, opener, fakeCtx, hk)
		}
	}
}

func runTestCommand(cmd string, ctl *session.Controller, opener *ptt.FakeOpener, fakeCtx *audio.FakeContext, hk *hotkey.FakeHotkey) {
	name, arg, _ := strings.Cut(cmd, " ")
	switch name {
	case "PORTS":
		fmt.Printf("PORTS %s\n", strings.Join(ctl.Ports(), ","))
	case "PLUG":
		opener.SetEndpoints(strings.Fields(arg)...)
	case "UNPLUG":
		opener.SetEndpoints()
	case "CONNECT":
		if arg == "" {
			arg = ctl.Ports()[0]
		}
		ctl.Connect(arg)
	case "DISCONNECT":
		ctl.Disconnect()
	case "PTT":
		ctl.TogglePTT()
	case "KEYDOWN":
		hk.SimKeydown()
	case "KEYUP":
		hk.SimKeyup()
	case "MONITOR":
		ctl.ToggleMonitor()
	case "FEED":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			fmt.Fprintf(os.Stderr, "bad FEED count %q\n", arg)
			return
		}
		if c := fakeCtx.Last(); c != nil {
			c.Feed(n)
		}
	case "TICK":
		ctl.Refresh()
	case "STATE":
		fmt.Printf("STATE connected=%t keyed=%t monitoring=%t endpoint=%s dropped=%d\n",
			ctl.Connected(), ctl.Keyed(), ctl.Monitoring(), ctl.Endpoint(), ctl.Pipeline().Dropped())
	case "":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
	}
}
