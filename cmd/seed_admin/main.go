// seed_admin crea el primer usuario administrador (el registro por API exige un admin).
//
// Uso: go run ./cmd/seed_admin --username admin --password <secreto> [--pharmacy 1] [--migrate]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/jhoicas/farmacia-api/internal/application/auth"
	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-api/pkg/config"
	"github.com/jhoicas/farmacia-api/pkg/logger"
)

func main() {
	username := flag.String("username", "admin", "nombre de usuario")
	password := flag.String("password", "", "contraseña (mínimo 6 caracteres)")
	pharmacy := flag.Int("pharmacy", auth.DefaultPharmacyID, "id de la farmacia")
	migrate := flag.Bool("migrate", false, "aplica el esquema antes de crear el usuario")
	flag.Parse()

	if len(*password) < 6 {
		fmt.Fprintln(os.Stderr, "--password es obligatorio (mínimo 6 caracteres)")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if *migrate {
		if err := postgres.NewTxRunner(pool).Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migración")
		}
	}

	uc := auth.NewAuthUseCase(postgres.NewUserRepository(pool), auth.JWTConfig{
		Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer,
	})
	user, err := uc.RegisterUser(ctx, dto.RegisterRequest{
		Username:   *username,
		Password:   *password,
		Role:       entity.RoleAdmin,
		PharmacyID: *pharmacy,
	})
	if errors.Is(err, domain.ErrUsernameExists) {
		log.Warn().Str("username", *username).Msg("el usuario ya existe, no se modifica")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("crear administrador")
	}
	log.Info().Str("id", user.ID).Str("username", user.Username).Int("pharmacy_id", user.PharmacyID).Msg("administrador creado")
}
