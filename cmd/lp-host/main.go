// Command lp-host is the workstation host process: it loads a project
// file, runs the render loop, and either presents it in a preview window
// or streams it to real output hardware. Grounded on the teacher's
// main.go wiring shape (bus/CPU/GUI construction, argv-driven mode
// selection) generalized from "pick a CPU core, boot it under a GUI" to
// "load a project graph, tick it, present or drive it."
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightplayer/lp/internal/devmonitor"
	"github.com/lightplayer/lp/internal/display"
	"github.com/lightplayer/lp/internal/fsys"
	"github.com/lightplayer/lp/internal/outputprovider"
	"github.com/lightplayer/lp/internal/previewwindow"
	"github.com/lightplayer/lp/internal/project"
	"github.com/lightplayer/lp/internal/server"
)

func main() {
	var (
		projectPath = flag.String("project", "", "path to the project directory to load")
		root        = flag.String("root", ".", "filesystem root the project may read/write within")
		headless    = flag.Bool("headless", false, "run without the preview window, for CI and headless rigs")
		width       = flag.Int("width", 64, "preview pixel buffer width")
		height      = flag.Int("height", 1, "preview pixel buffer height")
		scale       = flag.Int("scale", 8, "preview window pixel scale")
		wireStdio   = flag.Bool("wire", false, "pump the client/server wire protocol over stdin/stdout")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("component", "lp-host").Logger()

	if *projectPath == "" {
		log.Error().Msg("missing required -project flag")
		os.Exit(1)
	}

	files, err := fsys.New(*root)
	if err != nil {
		log.Error().Err(err).Msg("opening filesystem root")
		os.Exit(1)
	}
	projectFiles, err := fsys.New(*projectPath)
	if err != nil {
		log.Error().Err(err).Msg("opening project directory")
		os.Exit(1)
	}
	proj, statuses, err := project.Load(projectFiles, outputprovider.NewSimulated())
	if err != nil {
		log.Error().Err(err).Msg("loading project")
		os.Exit(1)
	}
	for _, s := range statuses {
		ev := log.Info()
		if s.State != project.StatusOk {
			ev = log.Warn()
		}
		ev.Str("node", s.ID).Str("kind", s.Kind.String()).Str("status", s.State.String()).Str("msg", s.Msg).Msg("node loaded")
	}

	pipeline := display.New(*width, *height)
	for _, n := range proj.Graph().All() {
		if out, ok := n.(*project.OutputNode); ok {
			out.AttachPipeline(pipeline)
		}
	}

	srv := server.New(files)
	srv.SetProject(proj)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *wireStdio {
		go func() {
			if err := srv.Pump(os.Stdin, os.Stdout); err != nil {
				log.Error().Err(err).Msg("wire pump exited with error")
			}
			cancel()
		}()
	}

	mon := devmonitor.New()
	if !*headless {
		if err := mon.Start(); err != nil {
			log.Warn().Err(err).Msg("devmonitor: raw terminal mode unavailable")
		}
		defer mon.Stop()
	}

	go runTickLoop(ctx, proj, pipeline, mon, log)

	if *headless {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return
	}

	win := previewwindow.New(pipeline, *width, *height, *scale)
	if err := win.Run("lp-host preview"); err != nil {
		log.Error().Err(err).Msg("preview window exited with error")
		os.Exit(1)
	}
	cancel()
}

func runTickLoop(ctx context.Context, proj *project.Project, pipeline *display.Pipeline, mon *devmonitor.Monitor, log zerolog.Logger) {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := proj.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("tick failed")
				continue
			}
			pipeline.Tick(uint32(time.Since(start).Milliseconds()))
			if mon != nil {
				nodes := proj.Graph().All()
				statuses := make([]devmonitor.NodeStatus, 0, len(nodes))
				for _, n := range nodes {
					statuses = append(statuses, devmonitor.NodeStatus{ID: n.ID(), Kind: n.Kind().String(), State: "ok"})
				}
				mon.Render(uint64(proj.Frame()), statuses)
			}
		}
	}
}
