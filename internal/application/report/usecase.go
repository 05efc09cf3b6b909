package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// UseCase exporta el registro de operaciones como PDF o XML.
type UseCase struct {
	log          *inventory.OperationLogUseCase
	itemRepo     repository.ItemRepository
	userRepo     repository.UserRepository
	locationRepo repository.LocationRepository
	pdf          LogPDFGenerator
	xml          LogXMLExporter
	now          func() time.Time
}

// NewUseCase construye el caso de uso inyectando todas sus dependencias.
func NewUseCase(
	log *inventory.OperationLogUseCase,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
	locationRepo repository.LocationRepository,
	pdf LogPDFGenerator,
	xml LogXMLExporter,
) *UseCase {
	return &UseCase{
		log:          log,
		itemRepo:     itemRepo,
		userRepo:     userRepo,
		locationRepo: locationRepo,
		pdf:          pdf,
		xml:          xml,
		now:          time.Now,
	}
}

// DownloadPDF genera el PDF de una página del registro.
func (uc *UseCase) DownloadPDF(ctx context.Context, in dto.OperationLogRequest) (pdfBytes []byte, filename string, err error) {
	rep, err := uc.Build(ctx, in)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.pdf.GenerateOperationLogPDF(ctx, rep)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, filename(rep, "pdf"), nil
}

// DownloadXML genera el XML de una página del registro junto con su digest.
func (uc *UseCase) DownloadXML(ctx context.Context, in dto.OperationLogRequest) (body []byte, digest, filename string, err error) {
	rep, err := uc.Build(ctx, in)
	if err != nil {
		return nil, "", "", err
	}
	body, digest, err = uc.xml.ExportOperationLogXML(ctx, rep)
	if err != nil {
		return nil, "", "", fmt.Errorf("xml: exportación fallida: %w", err)
	}
	return body, digest, filename(rep, "xml"), nil
}

// Build carga la página del registro y resuelve códigos, nombres de usuario y ubicaciones.
// Una referencia que ya no existe se muestra con su ID.
func (uc *UseCase) Build(ctx context.Context, in dto.OperationLogRequest) (*LogReport, error) {
	records, limit, offset, err := uc.log.Records(ctx, in)
	if err != nil {
		return nil, err
	}

	items := map[string]*entity.Item{}
	users := map[string]*entity.User{}
	locations := map[string]string{}

	rows := make([]LogRow, 0, len(records))
	for _, rec := range records {
		row := LogRow{OperationRecord: *rec, ItemCode: rec.ItemID, ResultingLocationName: rec.ResultingLocationID}

		it, err := lookup(ctx, items, rec.ItemID, uc.itemRepo.GetByID)
		if err != nil {
			return nil, err
		}
		if it != nil {
			row.ItemCode, row.ItemName = it.Code, it.Name
		}

		u, err := lookup(ctx, users, rec.UserID, uc.userRepo.GetByID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			row.Username, row.UserTgID = u.Username, u.ExternalID
		}
		if rec.OnBehalfOfID != nil {
			ob, err := lookup(ctx, users, *rec.OnBehalfOfID, uc.userRepo.GetByID)
			if err != nil {
				return nil, err
			}
			if ob != nil {
				row.OnBehalfOfUsername = ob.Username
			}
		}

		name, ok := locations[rec.ResultingLocationID]
		if !ok {
			loc, err := uc.locationRepo.GetByID(ctx, rec.ResultingLocationID)
			if err != nil {
				return nil, err
			}
			name = rec.ResultingLocationID
			if loc != nil {
				name = loc.Name
			}
			locations[rec.ResultingLocationID] = name
		}
		row.ResultingLocationName = name

		rows = append(rows, row)
	}

	return &LogReport{
		GeneratedAt: uc.now(),
		ItemID:      in.ItemID,
		Limit:       limit,
		Offset:      offset,
		Rows:        rows,
	}, nil
}

// lookup consulta una vez por ID y recuerda también los ausentes.
func lookup[T any](ctx context.Context, cache map[string]*T, id string, get func(context.Context, string) (*T, error)) (*T, error) {
	if v, ok := cache[id]; ok {
		return v, nil
	}
	v, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = v
	return v, nil
}

func filename(rep *LogReport, ext string) string {
	return fmt.Sprintf("operaciones_%s.%s", rep.GeneratedAt.Format("20060102_150405"), ext)
}
