// Package xmlexport exporta el registro de operaciones como XML con digest canónico.
package xmlexport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/almacen-api/internal/application/report"
)

var _ report.LogXMLExporter = (*Exporter)(nil)

// Exporter construye <operationLog> con etree.
type Exporter struct{}

// NewExporter construye el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// ExportOperationLogXML devuelve el documento y el base64 del SHA-256 de su forma C14N.
func (e *Exporter) ExportOperationLogXML(_ context.Context, rep *report.LogReport) ([]byte, string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("operationLog")
	root.CreateAttr("generatedAt", rep.GeneratedAt.UTC().Format(time.RFC3339))
	root.CreateAttr("count", strconv.Itoa(len(rep.Rows)))
	root.CreateAttr("limit", strconv.Itoa(rep.Limit))
	root.CreateAttr("offset", strconv.Itoa(rep.Offset))
	if rep.ItemID != "" {
		root.CreateAttr("itemId", rep.ItemID)
	}

	for _, r := range rep.Rows {
		op := root.CreateElement("operation")
		op.CreateAttr("id", r.ID)
		op.CreateAttr("type", string(r.Kind))
		op.CreateAttr("createdAt", r.CreatedAt.UTC().Format(time.RFC3339Nano))
		op.CreateAttr("quantityDelta", strconv.FormatInt(r.QuantityDelta, 10))
		op.CreateAttr("resultingQuantity", strconv.FormatInt(r.ResultingQuantity, 10))

		item := op.CreateElement("item")
		item.CreateAttr("id", r.ItemID)
		item.CreateAttr("code", r.ItemCode)
		if r.ItemName != "" {
			item.CreateAttr("name", r.ItemName)
		}

		user := op.CreateElement("user")
		user.CreateAttr("id", r.UserID)
		user.CreateAttr("tgId", strconv.FormatInt(r.UserTgID, 10))
		if r.Username != "" {
			user.CreateAttr("username", r.Username)
		}
		if r.OnBehalfOfID != nil {
			ob := op.CreateElement("onBehalfOf")
			ob.CreateAttr("id", *r.OnBehalfOfID)
			if r.OnBehalfOfUsername != "" {
				ob.CreateAttr("username", r.OnBehalfOfUsername)
			}
		}

		loc := op.CreateElement("location")
		loc.CreateAttr("from", r.FromLocationID)
		loc.CreateAttr("to", r.ResultingLocationID)
		loc.CreateAttr("name", r.ResultingLocationName)

		op.CreateElement("note").SetText(r.Note)
	}

	doc.Indent(2)
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, "", fmt.Errorf("xml: serializar: %w", err)
	}
	digest, err := Digest(out.Bytes())
	if err != nil {
		return nil, "", err
	}
	return out.Bytes(), digest, nil
}

// Digest calcula el base64 del SHA-256 de la forma canónica (C14N) del documento.
// Dos documentos equivalentes con distinto formato producen el mismo digest.
func Digest(data []byte) (string, error) {
	canonical, err := canonicalizeXML(data)
	if err != nil {
		return "", fmt.Errorf("xml: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
