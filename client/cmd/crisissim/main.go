package main

import (
	"flag"
	"log"
	"os"

	"crisis-sim/client/internal/backend"
	"crisis-sim/client/internal/channel"
	"crisis-sim/client/internal/config"
	"crisis-sim/client/internal/engine"
	"crisis-sim/client/internal/journal"
	"crisis-sim/client/internal/media"
	"crisis-sim/client/internal/player"
	"crisis-sim/client/internal/shell"
)

// dispatcher 延迟绑定引擎：通道适配器构造时引擎还不存在
// （引擎又需要适配器作为 opener），靠这个薄代理解开环。
type dispatcher struct {
	eng *engine.Engine
}

func (d *dispatcher) Dispatch(evt engine.Event) error {
	return d.eng.Dispatch(evt)
}

func main() {
	// 参数用 flag，环境相关的覆盖用环境变量（CRISISSIM_BACKEND_URL 等）。
	configPath := flag.String("config", "", "config file path (yaml), empty for defaults")
	prompt := flag.String("prompt", "", "initial crisis prompt, empty for server default")
	devMode := flag.Bool("dev", false, "developer mode: ask backend to shorten generation delays")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *prompt != "" {
		cfg.Session.InitialPrompt = *prompt
	}
	if *devMode {
		cfg.Session.DeveloperMode = true
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	// 播放侧：两个视频槽位 + 一路旁白，合成元素驱动（没有真实解码，
	// 生命周期事件与真实元素一致）。旁白贯穿整回合，时长按三个片段估。
	coord := player.New(logger, cfg.Playback.PollInterval)
	videoA := media.NewSimElement("video-a", cfg.Playback.SimLoadDelay, cfg.Playback.SimClipDuration, coord.HandleMediaEvent)
	videoB := media.NewSimElement("video-b", cfg.Playback.SimLoadDelay, cfg.Playback.SimClipDuration, coord.HandleMediaEvent)
	audio := media.NewSimElement("audio", cfg.Playback.SimLoadDelay, 3*cfg.Playback.SimClipDuration, coord.HandleMediaEvent)
	coord.Attach(videoA, videoB, audio)

	be := backend.New(cfg.Backend.BaseURL, logger)
	sh := shell.New(os.Stdin, os.Stdout, coord)

	disp := &dispatcher{}
	adapter := channel.New(cfg.Backend.WSBaseURL, disp, logger)

	eng := engine.New(be, adapter, sh, engine.Options{
		Logger:         logger,
		Journal:        journal.NewInMemoryStore(),
		RequestTimeout: cfg.Backend.RequestTimeout,
	})
	disp.eng = eng
	sh.Bind(eng)

	defer func() {
		coord.Stop()
		if err := eng.Close(); err != nil {
			logger.Printf("[Main] close engine: %v", err)
		}
	}()

	if err := sh.Run(cfg.Session.InitialPrompt, cfg.Session.DeveloperMode); err != nil {
		log.Fatalf("shell: %v", err)
	}
}
