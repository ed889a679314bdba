package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"glot/audio"
	"glot/broadcast"
	"glot/config"
	"glot/log"
	"glot/shutdown"
	"glot/transcriber"
	"glot/translate"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Config file path (YAML); defaults apply when empty")
	langFlag := flag.String("lang", "", "Source language override (e.g. en, es)")
	targetsFlag := flag.String("targets", "es", "Comma-separated target languages for local listeners (e.g. es,fr,de)")
	replayFlag := flag.String("replay", "", "Replay a 16kHz mono WAV file instead of capturing live audio")
	deviceFlag := flag.String("device", "", "Use named microphone device (otherwise system default)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("glot %s\n", version)
		os.Exit(0)
	}

	godotenv.Load()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *langFlag != "" {
		cfg.STT.Language = *langFlag
	}
	if *logPathFlag != "" {
		cfg.Log.Dir = *logPathFlag
	}

	log.SetLevel(cfg.Log.Level)
	log.SetDir(cfg.Log.Dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if err := log.InitFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

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

	tr, err := newTranscriber(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tl, err := newTranslator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	audioCtx, dev, err := openCapture(cfg, *replayFlag, *deviceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	reg := broadcast.NewMemoryRegistry()
	printDone := attachLocalListeners(reg, *targetsFlag)

	sess := newRelaySession(cfg, tr, tl, reg)
	if err := sess.Start(context.Background(), dev); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "glot %s | %s (%s) | listening on %q\n",
		version, tr.Name(), cfg.STT.Language, dev.DeviceName())

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)

	var replayDone <-chan struct{}
	if fake, ok := dev.(*audio.FakeCapture); ok {
		replayDone = fake.AudioDone()
	}

	select {
	case <-sigChan:
		fmt.Fprintln(os.Stderr, "shutting down")
	case err := <-sess.Fatal():
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
	case <-replayDone:
		// Let the trailing segment's silence window elapse first.
		time.Sleep(cfg.Segmenter.SilenceAfter())
	}

	sess.Stop()
	dev.Close()
	close(printDone)
}

func newTranscriber(cfg config.Config) (transcriber.Transcriber, error) {
	switch cfg.STT.Provider {
	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("provider deepgram requires DEEPGRAM_API_KEY")
		}
		return transcriber.NewDeepgram(key), nil
	case "groq":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("provider groq requires GROQ_API_KEY")
		}
		return transcriber.NewGroq(key), nil
	case "":
		return transcriber.New()
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

func newTranslator(cfg config.Config) (translate.Translator, error) {
	inner, err := translate.New(cfg.Translate.Model)
	if err != nil {
		return nil, err
	}
	timed := translate.WithTimeout(inner, cfg.Translate.RequestTimeout())
	return translate.NewCached(timed, cfg.Translate.CacheSize, cfg.Translate.CacheTTL()), nil
}

func openCapture(cfg config.Config, replayPath, deviceName string) (audio.Context, audio.CaptureDevice, error) {
	if replayPath != "" {
		ctx, err := audio.NewFakeContext(replayPath, cfg.Audio.SampleRate, true)
		if err != nil {
			return nil, nil, err
		}
		dev, err := ctx.NewCapture(nil, audio.CaptureConfig{
			SampleRate: uint32(cfg.Audio.SampleRate),
			Channels:   uint32(cfg.Audio.Channels),
		})
		if err != nil {
			ctx.Close()
			return nil, nil, err
		}
		return ctx, dev, nil
	}

	ctx, err := audio.NewContext()
	if err != nil {
		return nil, nil, err
	}
	info, err := audio.FindDevice(ctx, deviceName)
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	dev, err := ctx.NewCapture(info, audio.CaptureConfig{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   uint32(cfg.Audio.Channels),
	})
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return ctx, dev, nil
}

// attachLocalListeners joins one stdout listener per requested target
// language, the minimal stand-in for a real listener transport.
func attachLocalListeners(reg *broadcast.MemoryRegistry, targets string) chan struct{} {
	done := make(chan struct{})
	for _, lang := range strings.Split(targets, ",") {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		d := broadcast.NewChannelDeliverer(16)
		reg.Join(lang, d)
		go func(lang string, ch <-chan broadcast.Payload) {
			for {
				select {
				case <-done:
					return
				case p := <-ch:
					marker := ""
					if p.IsPartial {
						marker = " …"
					}
					fmt.Printf("[%s]%s %s\n", lang, marker, p.TranslatedText)
				}
			}
		}(lang, d.Ch())
	}
	return done
}
