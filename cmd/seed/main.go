// seed crea los usuarios por defecto (admin y worker) y, opcionalmente, importa un catálogo
// XML de ubicaciones e ítems. Es idempotente: lo que ya existe se omite.
//
// Uso: go run ./cmd/seed [ruta/catalogo.xml]
// El XML puede venir en UTF-8 o ISO-8859-1:
//
//	<catalogo>
//	  <ubicacion nombre="Pasillo 1" descripcion="...">
//	    <item codigo="A-001" nombre="Tornillo" cantidad="10" peso="0.2"/>
//	  </ubicacion>
//	</catalogo>
package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-api/pkg/config"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

// Usuarios creados si no existen.
var defaultUsers = []entity.User{
	{ExternalID: 732334353, Username: "admin", Role: entity.RoleAdmin},
	{ExternalID: 1345214313, Username: "worker", Role: entity.RoleWorker},
}

type catalogo struct {
	Ubicaciones []ubicacion `xml:"ubicacion"`
}

type ubicacion struct {
	Nombre      string     `xml:"nombre,attr"`
	Descripcion string     `xml:"descripcion,attr"`
	Items       []catalogItem `xml:"item"`
}

type catalogItem struct {
	Codigo   string `xml:"codigo,attr"`
	Nombre   string `xml:"nombre,attr"`
	Cantidad string `xml:"cantidad,attr"`
	Peso     string `xml:"peso,attr"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})
	ctx := log.WithContext(context.Background())

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	userRepo := postgres.NewUserRepository(pool)
	created, err := seedUsers(ctx, userRepo, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("usuarios por defecto")
	}
	log.Info().Int("creados", created).Msg("usuarios por defecto")

	if len(os.Args) < 2 {
		return
	}
	path := os.Args[1]
	if !filepath.IsAbs(path) {
		path = filepath.Join(findModuleRoot(), path)
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("abrir catálogo")
	}
	defer f.Close()

	cat, err := parseCatalog(f)
	if err != nil {
		log.Fatal().Err(err).Msg("decodificar catálogo")
	}
	itemRepo := postgres.NewItemRepository(pool)
	locUC := usecase.NewLocationUseCase(postgres.NewLocationRepository(pool), itemRepo)
	itemUC := usecase.NewItemUseCase(itemRepo, postgres.NewTxRunner(pool))
	locs, items, err := importCatalog(ctx, cat, locUC, itemUC, defaultUsers[0].ExternalID)
	if err != nil {
		log.Fatal().Err(err).Msg("importar catálogo")
	}
	log.Info().Int("ubicaciones", locs).Int("items", items).Str("path", path).Msg("catálogo importado")
}

// seedUsers crea los usuarios por defecto ausentes y devuelve cuántos creó.
func seedUsers(ctx context.Context, repo repository.UserRepository, now time.Time) (int, error) {
	created := 0
	for _, u := range defaultUsers {
		existing, err := repo.GetByExternalID(ctx, u.ExternalID)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		u.ID = uuid.New().String()
		u.IsActive = true
		u.CreatedAt = now
		if err := repo.Create(ctx, &u); err != nil {
			return created, fmt.Errorf("crear usuario %d: %w", u.ExternalID, err)
		}
		created++
	}
	return created, nil
}

// parseCatalog decodifica el catálogo aceptando ISO-8859-1 además de UTF-8.
func parseCatalog(r io.Reader) (*catalogo, error) {
	var c catalogo
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToUpper(charset) {
		case "ISO-8859-1", "ISO8859-1", "LATIN1":
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		case "WINDOWS-1252", "CP1252":
			return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// importCatalog crea ubicaciones e ítems ausentes. Cada ítem nuevo registra su recepción
// inicial a nombre de actingTgID.
func importCatalog(ctx context.Context, cat *catalogo, locUC *usecase.LocationUseCase, itemUC *usecase.ItemUseCase, actingTgID int64) (locs, items int, err error) {
	log := zerolog.Ctx(ctx)
	for _, u := range cat.Ubicaciones {
		nombre := strings.TrimSpace(u.Nombre)
		if nombre == "" {
			continue
		}
		loc, err := locUC.GetByName(ctx, nombre)
		if err != nil {
			return locs, items, err
		}
		if loc == nil {
			loc, err = locUC.Create(ctx, dto.CreateLocationRequest{Name: nombre, Description: strings.TrimSpace(u.Descripcion)})
			if err != nil {
				return locs, items, fmt.Errorf("ubicación %q: %w", nombre, err)
			}
			locs++
		}
		for _, it := range u.Items {
			scan, err := itemUC.ScanByCode(ctx, it.Codigo)
			if err != nil {
				return locs, items, err
			}
			if scan.Status == dto.ScanStatusExists {
				log.Debug().Str("codigo", it.Codigo).Msg("ítem ya existe, se omite")
				continue
			}
			qty, err := parseDecimal(it.Cantidad)
			if err != nil {
				return locs, items, fmt.Errorf("ítem %q: cantidad: %w", it.Codigo, err)
			}
			weight, err := parseDecimal(it.Peso)
			if err != nil {
				return locs, items, fmt.Errorf("ítem %q: peso: %w", it.Codigo, err)
			}
			if _, err := itemUC.Create(ctx, actingTgID, dto.CreateItemRequest{
				Code:       it.Codigo,
				Name:       it.Nombre,
				Weight:     weight,
				Quantity:   qty,
				LocationID: loc.ID,
			}); err != nil {
				return locs, items, fmt.Errorf("ítem %q: %w", it.Codigo, err)
			}
			items++
		}
	}
	return locs, items, nil
}

// parseDecimal acepta coma decimal; vacío = 0.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
