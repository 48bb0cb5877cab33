package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"docindex/internal/domain"
	"docindex/internal/port"
)

var _ port.Extractor = (*OfficeExtractor)(nil)

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 64 << 20

// OfficeExtractor reads OOXML documents (docx, xlsx, pptx) straight from the
// zip container. Legacy binary formats get a fixed explanatory text.
type OfficeExtractor struct {
	textLimit int
}

func NewOfficeExtractor(textLimit int) *OfficeExtractor {
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &OfficeExtractor{textLimit: textLimit}
}

func (o *OfficeExtractor) Supports(fileName, mimeType string) bool {
	switch extension(fileName) {
	case "docx", "xlsx", "xlsm", "pptx", "doc", "xls", "ppt":
		return true
	}
	return false
}

func (o *OfficeExtractor) Extract(ctx context.Context, data []byte, fileName, mimeType string) (port.Extraction, error) {
	var (
		text        string
		meta        port.ExtractionMetadata
		placeholder bool
		err         error
	)

	switch extension(fileName) {
	case "docx":
		text, meta, err = o.withArchive(data, extractDocx)
	case "xlsx", "xlsm":
		text, meta, err = o.withArchive(data, extractXlsx)
	case "pptx":
		text, meta, err = o.withArchive(data, extractPptx)
	case "doc":
		text, placeholder = legacyDocFallback(fileName), true
	case "xls", "ppt":
		text, placeholder = legacyBinaryFallback(fileName), true
	default:
		return port.Extraction{}, domain.ErrUnsupportedFormat
	}
	if err != nil {
		return port.Extraction{}, &domain.ExtractionError{FileName: fileName, MIMEType: mimeType, Err: err}
	}

	out, empty := Finalize(text, fileName, o.textLimit)
	return port.Extraction{
		Text:        out,
		Metadata:    meta,
		Placeholder: placeholder || empty,
	}, nil
}

func (o *OfficeExtractor) withArchive(data []byte, fn func(*zip.Reader) (string, port.ExtractionMetadata, error)) (string, port.ExtractionMetadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", port.ExtractionMetadata{}, fmt.Errorf("failed to open archive: %w", err)
	}
	return fn(zr)
}

func extractDocx(zr *zip.Reader) (string, port.ExtractionMetadata, error) {
	var parts []*zip.File
	for _, f := range zr.File {
		if isDocxTextPart(f.Name) {
			parts = append(parts, f)
		}
	}
	// body first, then headers, footers, notes and comments by name
	sort.SliceStable(parts, func(i, j int) bool {
		bi, bj := parts[i].Name == "word/document.xml", parts[j].Name == "word/document.xml"
		if bi != bj {
			return bi
		}
		return parts[i].Name < parts[j].Name
	})

	var segments []string
	paragraphs := 0
	for _, f := range parts {
		data, err := readPart(f)
		if err != nil {
			return "", port.ExtractionMetadata{}, err
		}
		paras, err := textGroups(data, "p", "t")
		if err != nil {
			return "", port.ExtractionMetadata{}, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		paras = nonEmpty(paras)
		if len(paras) == 0 {
			continue
		}
		paragraphs += len(paras)
		segments = append(segments, strings.Join(paras, "\n"))
	}

	return strings.Join(segments, "\n\n"), port.ExtractionMetadata{ParagraphCount: paragraphs}, nil
}

func isDocxTextPart(name string) bool {
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	for _, kind := range []string{"document", "header", "footer", "footnotes", "endnotes", "comments"} {
		if strings.Contains(name, kind) {
			return true
		}
	}
	return false
}

func extractXlsx(zr *zip.Reader) (string, port.ExtractionMetadata, error) {
	var shared []string
	for _, f := range zr.File {
		if f.Name != "xl/sharedStrings.xml" {
			continue
		}
		data, err := readPart(f)
		if err != nil {
			return "", port.ExtractionMetadata{}, err
		}
		// empty entries are kept so indexes stay aligned
		if shared, err = textGroups(data, "si", "t"); err != nil {
			return "", port.ExtractionMetadata{}, fmt.Errorf("failed to parse shared strings: %w", err)
		}
		break
	}

	var (
		sheetTexts []string
		meta       port.ExtractionMetadata
	)
	for i, f := range numberedParts(zr, "xl/worksheets/sheet", ".xml") {
		data, err := readPart(f)
		if err != nil {
			return "", port.ExtractionMetadata{}, err
		}
		rows, err := sheetRows(data, shared)
		if err != nil {
			return "", port.ExtractionMetadata{}, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		if len(rows) == 0 {
			continue
		}
		name := fmt.Sprintf("Sheet %d", i+1)
		meta.SheetNames = append(meta.SheetNames, name)
		meta.RowCount += len(rows)
		sheetTexts = append(sheetTexts, name+"\n"+strings.Join(rows, "\n"))
	}

	return strings.Join(sheetTexts, "\n\n"), meta, nil
}

func extractPptx(zr *zip.Reader) (string, port.ExtractionMetadata, error) {
	var slides []string
	for i, f := range numberedParts(zr, "ppt/slides/slide", ".xml") {
		data, err := readPart(f)
		if err != nil {
			return "", port.ExtractionMetadata{}, err
		}
		paras, err := textGroups(data, "p", "t")
		if err != nil {
			return "", port.ExtractionMetadata{}, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		paras = nonEmpty(paras)
		if len(paras) == 0 {
			continue
		}
		slides = append(slides, fmt.Sprintf("Slide %d\n%s", i+1, strings.Join(paras, " ")))
	}

	return strings.Join(slides, "\n\n"), port.ExtractionMetadata{SlideCount: len(slides)}, nil
}

// textGroups returns, for every <group> element, the concatenated character
// data of the <leaf> elements inside it. Namespaces are ignored.
func textGroups(data []byte, group, leaf string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out     []string
		current strings.Builder
		depth   int
		inLeaf  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case group:
				if depth == 0 {
					current.Reset()
				}
				depth++
			case leaf:
				inLeaf = depth > 0
			}
		case xml.EndElement:
			switch t.Name.Local {
			case group:
				if depth > 0 {
					depth--
					if depth == 0 {
						out = append(out, strings.TrimSpace(current.String()))
					}
				}
			case leaf:
				inLeaf = false
			}
		case xml.CharData:
			if inLeaf {
				current.Write(t)
			}
		}
	}
}

// sheetRows renders each worksheet row as its non-empty cell values joined by tabs.
func sheetRows(data []byte, shared []string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		rows     []string
		cells    []string
		cellType string
		value    strings.Builder
		inline   strings.Builder
		inValue  bool
		inInline bool
		inText   bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = cells[:0]
			case "c":
				cellType = attr(t, "t")
				value.Reset()
				inline.Reset()
			case "v":
				inValue = true
			case "is":
				inInline = true
			case "t":
				inText = inInline
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v":
				inValue = false
			case "is":
				inInline = false
			case "t":
				inText = false
			case "c":
				cells = append(cells, strings.TrimSpace(cellValue(cellType, value.String(), inline.String(), shared)))
			case "row":
				if row := strings.Join(nonEmpty(cells), "\t"); row != "" {
					rows = append(rows, row)
				}
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
			if inText {
				inline.Write(t)
			}
		}
	}
}

func cellValue(cellType, raw, inline string, shared []string) string {
	switch cellType {
	case "inlineStr":
		return inline
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	default:
		return raw
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// numberedParts returns archive members named prefix<N>suffix ordered by N.
func numberedParts(zr *zip.Reader, prefix, suffix string) []*zip.File {
	type numbered struct {
		n int
		f *zip.File
	}
	var parts []numbered
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) || !strings.HasSuffix(f.Name, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, prefix), suffix))
		if err != nil {
			continue
		}
		parts = append(parts, numbered{n: n, f: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })

	out := make([]*zip.File, len(parts))
	for i, p := range parts {
		out[i] = p.f
	}
	return out
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func legacyDocFallback(fileName string) string {
	return fmt.Sprintf("%s is a legacy binary Word document and its text cannot be extracted directly. Convert it to DOCX and index it again.", fileName)
}

func legacyBinaryFallback(fileName string) string {
	return fmt.Sprintf("%s is a legacy binary Office file. Automatic text extraction is not supported for it; save it in a current Office format and index it again.", fileName)
}
