package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"vx2/audio"
	"vx2/beep"
	"vx2/doctor"
	"vx2/hotkey"
	"vx2/log"
	"vx2/monitor"
	"vx2/ptt"
	"vx2/session"
	"vx2/shutdown"
	"vx2/sink"
)

var version = "dev"

type options struct {
	port       string
	baud       int
	line       ptt.Line
	sampleRate uint32
	frameSize  uint32
	out        string
	device     string
	setup      bool
	combo      hotkey.Combo
	hotkeyOn   bool
	longPress  time.Duration
}

func (o options) capture(dev *audio.DeviceInfo) monitor.Config {
	return monitor.Config{SampleRate: o.sampleRate, FrameSize: o.frameSize, Device: dev}
}

func run() {
	portFlag := flag.String("port", "", "Serial port to connect on startup")
	baudFlag := flag.Int("baud", ptt.DefaultBaud, "Serial baud rate")
	lineFlag := flag.String("line", "rts", "Control line used for PTT: rts or dtr")
	rateFlag := flag.Uint("rate", monitor.DefaultSampleRate, "Monitor sample rate in Hz")
	frameFlag := flag.Uint("frame", monitor.DefaultFrameSize, "Samples per monitor frame")
	outFlag := flag.String("out", sink.DefaultDest, "Where to save monitored audio (.wav or .flac)")
	deviceFlag := flag.String("device", "", "Use named input device")
	setupFlag := flag.Bool("setup", false, "Select input device (otherwise uses system default)")
	hotkeyFlag := flag.String("hotkey", hotkey.DefaultCombo, "Global PTT hotkey, empty to disable")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Hold threshold for momentary PTT vs latched tap")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	doctorFlag := flag.Bool("doctor", false, "Run interactive diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, fake port and audio)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vx2 %s\n", version)
		os.Exit(0)
	}

	line, err := ptt.ParseLine(*lineFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *rateFlag == 0 || *frameFlag == 0 {
		fmt.Fprintln(os.Stderr, "Error: -rate and -frame must be positive")
		os.Exit(2)
	}
	opts := options{
		port:       *portFlag,
		baud:       *baudFlag,
		line:       line,
		sampleRate: uint32(*rateFlag),
		frameSize:  uint32(*frameFlag),
		out:        *outFlag,
		device:     *deviceFlag,
		setup:      *setupFlag,
		hotkeyOn:   *hotkeyFlag != "",
		longPress:  *longPressFlag,
	}
	if opts.hotkeyOn {
		if opts.combo, err = hotkey.ParseCombo(*hotkeyFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: -hotkey: %v\n", err)
			os.Exit(2)
		}
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *doctorFlag {
		combo := opts.combo
		if !opts.hotkeyOn {
			combo, _ = hotkey.ParseCombo(hotkey.DefaultCombo)
		}
		os.Exit(doctor.Run(doctor.Options{
			Port:       opts.port,
			Baud:       opts.baud,
			Line:       opts.line,
			Combo:      combo,
			Device:     opts.device,
			SampleRate: opts.sampleRate,
			FrameSize:  opts.frameSize,
		}))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *testFlag {
		wavPath := ""
		if args := flag.Args(); len(args) > 0 {
			wavPath = args[0]
		}
		code := runTestMode(opts, wavPath)
		log.Close()
		os.Exit(code)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if opts.device != "" {
		selectedDevice, err = audio.FindDevice(ctx, opts.device)
		if err != nil || selectedDevice == nil {
			log.Warnf("input device %q not found, using default", opts.device)
			fmt.Printf("Warning: input device %q not found, using default\n", opts.device)
		}
	} else if opts.setup {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}
	deviceName := "system default"
	if selectedDevice != nil {
		deviceName = selectedDevice.Name
	}

	log.SessionStart(opts.port, opts.line.String(), opts.sampleRate, opts.frameSize, opts.out)
	go beep.Init()

	hotkeyLine := ""
	if opts.hotkeyOn {
		hotkeyLine = opts.combo.String() + " hold for PTT, tap to latch"
	}
	m := newPanel(hotkeyLine, deviceName)
	ctl := session.New(session.Config{
		Keyer:    ptt.NewKeyer(ptt.SerialOpener(opts.baud, opts.line), opts.line),
		Registry: ptt.SystemRegistry{},
		Pipeline: monitor.NewPipeline(ctx, nil),
		Capture:  opts.capture(selectedDevice),
		Dest:     opts.out,
		Display:  m,
		Cues:     beep.Cues{},
	})
	m.attach(ctl)
	if opts.port != "" {
		ctl.Connect(opts.port)
	}

	p := NewTUIProgram(m)

	sigChan := make(chan os.Signal, 1)
	stopSignals := shutdown.Notify(sigChan)
	defer stopSignals()
	go func() {
		<-sigChan
		p.Send(shutdownMsg{})
	}()

	if opts.hotkeyOn {
		if hy, release := startHotkey(opts); hy != nil {
			defer release()
			go func() {
				for ev := range hy.Events() {
					log.Info("hotkey_" + string(ev.Mode))
					p.Send(pttMsg{Keyed: ev.Keyed})
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	// The program loop has exited, so this is again the only goroutine
	// touching the controller.
	ctl.Shutdown()
}

// startHotkey registers the global combo. A failure only disables the
// hotkey; the panel keys still work.
func startHotkey(opts options) (*hotkey.Hybrid, func()) {
	hk := hotkey.New(opts.combo)
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Warning: hotkey disabled: %v\n", err)
		return nil, nil
	}
	hy := hotkey.NewHybrid(hk, opts.longPress)
	return hy, func() {
		hy.Close()
		hk.Unregister()
	}
}
