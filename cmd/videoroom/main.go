/**
 * Video room client for the Janus WebRTC gateway.
 * Copyright (C) 2026 struktur AG
 *
 * @author Joachim Bauch <bauch@struktur.de>
 *
 * @license GNU AGPL version 3 or any later version
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dlintw/goconf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/strukturag/janus-videoroom/config"
	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/layout"
	"github.com/strukturag/janus-videoroom/log"
	"github.com/strukturag/janus-videoroom/pionmedia"
	"github.com/strukturag/janus-videoroom/room"
	"github.com/strukturag/janus-videoroom/rtc"
)

var (
	version = "unreleased"

	configFlag = flag.String("config", "videoroom.conf", "config file to use")

	showVersion = flag.Bool("version", false, "show version and quit")
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second

	shutdownTimeout = 10 * time.Second
)

// newJoinContext limits joining to the time needed to try every server
// followed by the join request. A timeout of 0 disables the limit.
func newJoinContext(ctx context.Context, settings *janus.Settings) (context.Context, context.CancelFunc) {
	if settings.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	attempts := time.Duration(len(settings.Servers) * max(settings.RetryRounds, 1))
	return context.WithTimeout(ctx, settings.Timeout*(attempts+1)+settings.MaxRetryDelay*attempts)
}

type sessionListener struct {
	log   *zap.Logger
	fatal chan error
}

func (l *sessionListener) OnConnected(session *rtc.Session, id uint64) {
	l.log.Info("Connected to gateway",
		zap.String("server", session.Server()),
		zap.Uint64("session", id),
	)
}

func (l *sessionListener) OnFatal(session *rtc.Session, err error) {
	select {
	case l.fatal <- err:
	default:
	}
}

func reloadLayout(log *zap.Logger, r *room.Room, cfg *goconf.ConfigFile) {
	space, err := layout.LoadSpace(cfg)
	if err != nil {
		log.Error("Could not load layout configuration",
			zap.Error(err),
		)
		return
	}

	if space == r.Space() {
		return
	}

	log.Info("Updating layout",
		zap.Int("width", space.Width),
		zap.Int("height", space.Height),
	)
	r.Resize(space)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("janus-videoroom version %s/%s\n", version, runtime.Version())
		os.Exit(0)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	signal.Notify(sigChan, syscall.SIGHUP)

	fmt.Printf("Starting up version %s/%s as pid %d\n", version, runtime.Version(), os.Getpid())

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Printf("Could not read configuration: %s\n", err)
		os.Exit(1)
	}

	var logConfig zap.Config
	if debug, _ := config.GetBool(cfg, "app", "debug", false); debug {
		logConfig = zap.NewDevelopmentConfig()
	} else {
		logConfig = zap.NewProductionConfig()
		logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	logger, err := logConfig.Build(
		// Only log stack traces when panicing.
		zap.AddStacktrace(zap.DPanicLevel),
	)
	if err != nil {
		fmt.Printf("Could not create logger: %s\n", err)
		os.Exit(1)
	}

	restoreGlobalLogs := zap.ReplaceGlobals(logger)
	defer restoreGlobalLogs()

	ctx := log.NewLoggerContext(context.Background(), log.NewZapLogger(logger))

	rtc.RegisterStats()

	rtcSettings, err := rtc.LoadSettings(ctx, cfg)
	if err != nil {
		logger.Fatal("Could not load gateway configuration",
			zap.Error(err),
		)
	}
	roomSettings, err := room.LoadSettings(ctx, cfg)
	if err != nil {
		logger.Fatal("Could not load room configuration",
			zap.Error(err),
		)
	}
	space, err := layout.LoadSpace(cfg)
	if err != nil {
		logger.Fatal("Could not load layout configuration",
			zap.Error(err),
		)
	}

	listener := &sessionListener{
		log:   logger,
		fatal: make(chan error, 1),
	}
	session := rtc.NewSession(ctx, rtcSettings, pionmedia.NewEngine(ctx), listener)
	r := room.NewRoom(ctx, roomSettings, session, space)

	joinCtx, cancel := newJoinContext(ctx, rtcSettings.Janus)
	err = r.Join(joinCtx)
	cancel()
	if err != nil {
		logger.Fatal("Could not join room",
			zap.String("room", roomSettings.Id),
			zap.Error(err),
		)
	}

	var srv *http.Server
	if addr := config.GetString(cfg, "http", "listen", ""); addr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.Handler())
		newLayoutApi(log.NewZapLogger(logger), r).Register(router)

		srv = &http.Server{
			Addr:    addr,
			Handler: router,

			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		}
		go func() {
			logger.Info("Listening",
				zap.String("addr", addr),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
				logger.Fatal("Could not start server",
					zap.Error(err),
				)
			}
		}()
	}

	watcher, err := config.NewWatcher(ctx, *configFlag, func(cfg *goconf.ConfigFile) {
		reloadLayout(logger, r, cfg)
	})
	if err != nil {
		logger.Error("Could not watch configuration, only reloading on SIGHUP",
			zap.String("filename", *configFlag),
			zap.Error(err),
		)
	} else {
		defer watcher.Close() // nolint
	}

loop:
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case os.Interrupt:
				logger.Debug("Interrupted")
				break loop
			case syscall.SIGHUP:
				logger.Info("Received SIGHUP, reloading",
					zap.String("filename", *configFlag),
				)
				if cfg, err := config.Load(*configFlag); err != nil {
					logger.Error("Could not read configuration",
						zap.String("filename", *configFlag),
						zap.Error(err),
					)
				} else {
					reloadLayout(logger, r, cfg)
				}
			}
		case err := <-listener.fatal:
			logger.Error("Connection to gateway failed",
				zap.Error(err),
			)
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := r.Leave(shutdownCtx); err != nil && !errors.Is(err, room.ErrNotJoined) {
		logger.Error("Error leaving room",
			zap.Error(err),
		)
	}
	if err := session.Destroy(shutdownCtx); err != nil {
		logger.Error("Error destroying session",
			zap.Error(err),
		)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping server",
				zap.Error(err),
			)
		}
	}
}
