// Package docx extracts text from Word (Office Open XML) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxPartSize bounds the decompressed size of a single archive part.
const maxPartSize = 256 << 20

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts paragraph text from word/document.xml, one line per
// paragraph. Tabs and breaks inside a run are kept.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrChunking, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}
	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document.xml: %w", domain.ErrChunking, err)
	}

	metadata := map[string]string{domain.MetaFormat: "docx"}
	if core, err := readPart(reader, "docProps/core.xml"); err == nil {
		if title := parseTitle(core); title != "" {
			metadata["title"] = title
		}
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Content:  content,
			Metadata: metadata,
		},
	}, nil
}

// readPart returns the decompressed bytes of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) > maxPartSize {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, maxPartSize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing %s", name)
}

// parseDocumentXML walks the token stream so text in tables, hyperlinks and
// content controls is found regardless of nesting depth.
func parseDocumentXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		result    strings.Builder
		paragraph strings.Builder
		inText    bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(paragraph.String()); line != "" {
					if result.Len() > 0 {
						result.WriteByte('\n')
					}
					result.WriteString(line)
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}
		}
	}

	return result.String(), nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

func parseTitle(content []byte) string {
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
