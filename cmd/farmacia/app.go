package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jhoicas/farmacia-api/internal/application/inventory"
	"github.com/jhoicas/farmacia-api/internal/application/reports"
	"github.com/jhoicas/farmacia-api/internal/application/session"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/infrastructure/remote"
	"github.com/jhoicas/farmacia-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/farmacia-api/pkg/config"
	"github.com/jhoicas/farmacia-api/pkg/logger"
)

// app objetos de la sesión del cliente. Sesión e inventario tienen ciclos de vida separados.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	loc     *time.Location
	cache   *sqlite.Cache
	gw      *remote.Gateway
	session *session.Holder
	inv     *inventory.Manager
	reports *reports.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})

	cache, err := sqlite.Open(cfg.Client.CachePath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, loc: entity.MovementZone(cfg.App.MovementUTCOffset), cache: cache}
	// El gateway toma el token del holder en cada llamada.
	a.gw = remote.New(cfg.Client.APIURL, remote.TokenFunc(func() string { return a.session.Token() }),
		&http.Client{Timeout: cfg.Client.RemoteTimeout})
	a.session = session.NewHolder(a.gw, cache, session.Config{
		AllowTestLogin: cfg.Client.AllowTestLogin,
		LockoutEnabled: cfg.Client.LockoutEnabled,
		Logger:         log,
	})
	a.inv = inventory.NewManager(a.gw, cache, inventory.Config{
		Timeout:  cfg.Client.RemoteTimeout,
		Location: a.loc,
		Logger:   log,
	})
	a.reports = reports.NewService(a.gw, a.loc)
	return a, nil
}

func (a *app) close() {
	_ = a.cache.Close()
}

// prepare restaura la sesión y, si el comando lo pide, carga el inventario.
func (a *app) prepare(ctx context.Context, cmd command) error {
	state, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if cmd.needsSession && state != session.StateAuthenticated {
		return fmt.Errorf("no hay sesión activa, use 'farmacia login'")
	}
	if a.session.IsTestSession() {
		fmt.Fprintln(os.Stderr, "AVISO: sesión de prueba sin validar por el servidor")
	}
	if !cmd.needsInventory {
		return nil
	}
	fromCache, err := a.inv.Load(ctx)
	if err != nil {
		return err
	}
	if fromCache {
		fmt.Fprintln(os.Stderr, "AVISO: servidor no disponible, se muestra la última lista guardada en este equipo")
	}
	return nil
}
