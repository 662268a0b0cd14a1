package ocr

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Uncompressed size cap for word/document.xml, guards against zip bombs.
const docXMLMax = 64 << 20

func parseDocx(input []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}
	if docFile.UncompressedSize64 > docXMLMax {
		return "", fmt.Errorf("word/document.xml too large: %d bytes", docFile.UncompressedSize64)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open word/document.xml: %w", err)
	}
	defer rc.Close()

	return extractDocxText(io.LimitReader(rc, docXMLMax))
}

func extractDocxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	var inDeleted int

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "del":
				inDeleted++
			case "t":
				if inDeleted > 0 {
					if err := dec.Skip(); err != nil {
						return "", fmt.Errorf("failed to parse document xml: %w", err)
					}
					continue
				}
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return "", fmt.Errorf("failed to parse document xml: %w", err)
				}
				sb.WriteString(text)
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "noBreakHyphen":
				sb.WriteByte('-')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "del":
				if inDeleted > 0 {
					inDeleted--
				}
			case "p", "tr":
				sb.WriteByte('\n')
			case "tc":
				sb.WriteByte('\t')
			}
		}
	}

	return sb.String(), nil
}
