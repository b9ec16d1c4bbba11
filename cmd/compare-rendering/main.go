// compare-rendering renders pages and compares them with reference PNGs
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/novvoo/go-pdfrender/pkg/imagediff"
	"github.com/novvoo/go-pdfrender/pkg/pdf"
	"github.com/novvoo/go-pdfrender/pkg/render"
)

func main() {
	firstPage := flag.Int("f", 1, "first page to compare")
	lastPage := flag.Int("l", 0, "last page to compare")
	expectedDir := flag.String("expected", "testdata/expected", "directory holding <name>-<page>.png references")
	errDir := flag.String("errors", "testdata/errors", "directory for diff images")
	scale := flag.Float64("scale", 1, "render scale")
	downscale := flag.Int("downscale", 1, "shrink renders by this factor before comparing")
	update := flag.Bool("update", false, "overwrite the references with the current renders")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: compare-rendering [options] <PDF-file>\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pdfFile := flag.Arg(0)
	doc, err := pdf.Open(pdfFile)
	if err != nil {
		logger.Error("opening PDF", "file", pdfFile, "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	renderer := render.NewRenderer(doc, render.WithLogger(logger))
	base := filepath.Base(pdfFile)
	base = base[:len(base)-len(filepath.Ext(base))]

	last := *lastPage
	if last == 0 || last > doc.NumPages() {
		last = doc.NumPages()
	}

	failed := 0
	for pageNum := max(1, *firstPage); pageNum <= last; pageNum++ {
		name := fmt.Sprintf("%s-%d", base, pageNum)
		img, err := renderer.RenderPage(pageNum, *scale, color.White)
		if err != nil {
			logger.Error("rendering page", "page", pageNum, "error", err)
			failed++
			continue
		}
		got := imagediff.Downscale(img, *downscale)
		expected := filepath.Join(*expectedDir, name+".png")

		if *update {
			if err := imagediff.Save(expected, got); err != nil {
				logger.Error("saving reference", "page", pageNum, "error", err)
				failed++
				continue
			}
			fmt.Printf("Updated %s\n", expected)
			continue
		}
		if err := imagediff.Check(got, expected, *errDir, name); err != nil {
			fmt.Printf("FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", name)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
