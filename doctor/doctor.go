package doctor

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vx2/audio"
	"vx2/hotkey"
	"vx2/monitor"
	"vx2/ptt"
	"vx2/shutdown"
	"vx2/sink"
)

type Options struct {
	Port       string
	Baud       int
	Line       ptt.Line
	Combo      hotkey.Combo
	Device     string
	SampleRate uint32
	FrameSize  uint32
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("vx2 doctor - interactive radio link diagnostics")
	fmt.Println("===============================================")

	reader := bufio.NewReader(os.Stdin)
	allPass := true

	if !checkSerial(reader, opts) {
		allPass = false
	}
	if !checkHotkey(opts.Combo) {
		allPass = false
	}
	captured, ok := checkCapture(reader, opts)
	if !ok {
		allPass = false
	}
	if ok && !checkSink(captured) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func confirm(reader *bufio.Reader, prompt string) bool {
	fmt.Print(prompt + " [y/n]: ")
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func checkSerial(reader *bufio.Reader, opts Options) bool {
	fmt.Println()
	fmt.Println("[1/4] Serial PTT line")

	reg := ptt.SystemRegistry{}
	ports, err := reg.Endpoints()
	if err != nil {
		fmt.Printf("  FAIL: cannot enumerate ports: %v\n", err)
		return false
	}
	if len(ports) == 0 {
		fmt.Println("  FAIL: " + ptt.NoPortsFound)
		return false
	}
	for i, p := range ports {
		if desc := reg.Describe(p); desc != "" {
			fmt.Printf("  %d. %s (%s)\n", i+1, p, desc)
		} else {
			fmt.Printf("  %d. %s\n", i+1, p)
		}
	}

	port := opts.Port
	if port == "" {
		fmt.Printf("Choice [1-%d]: ", len(ports))
		choice, _ := reader.ReadString('\n')
		idx := 1
		if choice = strings.TrimSpace(choice); choice != "" {
			fmt.Sscanf(choice, "%d", &idx)
		}
		if idx < 1 || idx > len(ports) {
			fmt.Println("  FAIL: invalid choice")
			return false
		}
		port = ports[idx-1]
	}

	keyer := ptt.NewKeyer(ptt.SerialOpener(opts.Baud, opts.Line), opts.Line)
	if err := keyer.Connect(port); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	defer keyer.Disconnect()

	fmt.Printf("  Opened %s at %d baud, keying %s for 1 second...\n", port, opts.Baud, opts.Line)
	if _, err := keyer.TogglePTT(); err != nil {
		fmt.Printf("  FAIL: cannot assert %s: %v\n", opts.Line, err)
		return false
	}
	time.Sleep(time.Second)
	if _, err := keyer.TogglePTT(); err != nil {
		fmt.Printf("  FAIL: cannot clear %s: %v\n", opts.Line, err)
		return false
	}

	if !confirm(reader, "Did the radio transmit?") {
		fmt.Println("  FAIL: keying not confirmed (try -line dtr)")
		return false
	}
	fmt.Println("  PASS: PTT line keys the radio")
	return true
}

func checkHotkey(combo hotkey.Combo) bool {
	fmt.Println()
	fmt.Println("[2/4] Hotkey detection")
	info, err := hotkey.Diagnose(combo)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", info)
	fmt.Printf("Press %s...\n", combo)

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// Reset terminal after hotkey - it may leave terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkCapture(reader *bufio.Reader, opts Options) (monitor.CapturedAudio, bool) {
	fmt.Println()
	fmt.Println("[3/4] Receive audio")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return monitor.NoAudio, false
	}
	defer ctx.Close()

	var device *audio.DeviceInfo
	if opts.Device != "" {
		device, err = audio.FindDevice(ctx, opts.Device)
		if err != nil || device == nil {
			fmt.Printf("  FAIL: input device %q not found\n", opts.Device)
			return monitor.NoAudio, false
		}
		fmt.Printf("Using device: %s\n", device.Name)
	}

	fmt.Print("Tune the radio to an active channel and press Enter...")
	reader.ReadString('\n')

	p := monitor.NewPipeline(ctx, nil)
	err = p.Start(monitor.Config{
		SampleRate: opts.SampleRate,
		FrameSize:  opts.FrameSize,
		Device:     device,
	})
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return monitor.NoAudio, false
	}

	fmt.Print("  Listening")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	captured := p.Stop()
	fmt.Println(" done")

	if captured.Empty() {
		fmt.Println("  FAIL: no audio captured")
		return monitor.NoAudio, false
	}
	level := peakDBFS(captured.Samples)
	fmt.Printf("  %d frames, %.1fs, peak %.1f dBFS, %d dropped from display\n",
		captured.Frames, captured.Duration().Seconds(), level, p.Dropped())
	if math.IsInf(level, -1) {
		fmt.Println("  FAIL: input is silent (check the cable and input gain)")
		return captured, false
	}
	fmt.Println("  PASS: audio received")
	return captured, true
}

func checkSink(captured monitor.CapturedAudio) bool {
	fmt.Println()
	fmt.Println("[4/4] Save capture")

	dir, err := os.MkdirTemp("", "vx2-doctor")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"doctor.wav", "doctor.flac"} {
		dest := filepath.Join(dir, name)
		if err := sink.Write(captured.Samples, captured.SampleRate, dest); err != nil {
			fmt.Printf("  FAIL: %v\n", err)
			return false
		}
		info, err := os.Stat(dest)
		if err != nil {
			fmt.Printf("  FAIL: %v\n", err)
			return false
		}
		fmt.Printf("  %s: %.1f KB\n", name, float64(info.Size())/1024)
	}
	fmt.Println("  PASS: WAV and FLAC written")
	return true
}

// peakDBFS returns the peak level relative to full scale, or -Inf for
// digital silence.
func peakDBFS(samples []int16) float64 {
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(peak)/32768)
}
