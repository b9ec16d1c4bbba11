// pdftoppm - PDF to PPM/PNG/TIFF image converter
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
	"github.com/novvoo/go-pdfrender/pkg/render"
)

const version = "1.0.0"

func main() {
	// Define flags
	firstPage := flag.Int("f", 1, "first page to convert")
	lastPage := flag.Int("l", 0, "last page to convert")
	resolution := flag.Float64("r", 150, "resolution in DPI")
	scaleTo := flag.Int("scale-to", 0, "scale the longest side to this many pixels")
	gray := flag.Bool("gray", false, "generate grayscale image (PGM)")
	png := flag.Bool("png", false, "generate PNG output")
	jpeg := flag.Bool("jpeg", false, "generate JPEG output")
	tiff := flag.Bool("tiff", false, "generate TIFF output")
	bmp := flag.Bool("bmp", false, "generate BMP output")
	transparent := flag.Bool("transp", false, "leave the page background transparent (PNG and TIFF)")
	hideAnnots := flag.Bool("hide-annotations", false, "do not render annotations")
	systemFonts := flag.Bool("system-fonts", false, "use installed fonts as substitutes")
	debug := flag.Bool("debug", false, "outline content that cannot be drawn")
	jobs := flag.Int("j", 1, "number of pages rendered in parallel")
	ownerPwd := flag.String("opw", "", "owner password")
	userPwd := flag.String("upw", "", "user password")
	quiet := flag.Bool("q", false, "don't print any messages")
	verbose := flag.Bool("verbose", false, "log recoverable rendering problems")
	printVersion := flag.Bool("v", false, "print version info")
	help := flag.Bool("h", false, "print usage information")
	flag.BoolVar(help, "help", false, "print usage information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pdftoppm version %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: pdftoppm [options] <PDF-file> [<output-root>]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *printVersion {
		fmt.Printf("pdftoppm version %s\n", version)
		return
	}

	if *help || flag.NArg() < 1 {
		flag.Usage()
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	if *quiet {
		level = slog.LevelError + 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pdfFile := flag.Arg(0)
	outputRoot := flag.Arg(1)
	if outputRoot == "" {
		outputRoot = strings.TrimSuffix(filepath.Base(pdfFile), filepath.Ext(pdfFile))
	}

	// Open PDF
	doc, err := pdf.Open(pdfFile)
	if errors.Is(err, pdf.ErrEncrypted) {
		err = unlock(doc, *ownerPwd, *userPwd)
	}
	if err != nil {
		logger.Error("opening PDF", "file", pdfFile, "error", err)
		os.Exit(1)
	}

	// Determine output format
	format := render.FormatPPM
	switch {
	case *png:
		format = render.FormatPNG
	case *jpeg:
		format = render.FormatJPEG
	case *tiff:
		format = render.FormatTIFF
	case *bmp:
		format = render.FormatBMP
	case *gray:
		format = render.FormatPGM
	}
	ext := "." + string(format)
	if format == render.FormatJPEG {
		ext = ".jpg"
	} else if format == render.FormatTIFF {
		ext = ".tif"
	}

	var background color.Color = color.White
	if *transparent && (format == render.FormatPNG || format == render.FormatTIFF) {
		background = nil
	}

	renderer := render.NewRenderer(doc,
		render.WithLogger(logger),
		render.WithBackground(background),
		render.WithAnnotations(!*hideAnnots),
		render.WithSystemFonts(*systemFonts),
		render.WithDebug(*debug),
	)

	// Determine page range
	first := max(1, *firstPage)
	last := *lastPage
	if last == 0 || last > doc.NumPages() {
		last = doc.NumPages()
	}

	pages := make(chan int)
	var wg sync.WaitGroup
	var failed sync.Map
	for range max(1, *jobs) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageNum := range pages {
				outputFile := outputRoot + ext
				if last != first {
					outputFile = fmt.Sprintf("%s-%d%s", outputRoot, pageNum, ext)
				}
				if err := renderFile(renderer, doc, pageNum, *resolution, *scaleTo, background, format, outputFile); err != nil {
					logger.Error("rendering page", "page", pageNum, "error", err)
					failed.Store(pageNum, err)
					continue
				}
				if !*quiet {
					fmt.Printf("Wrote %s\n", outputFile)
				}
			}
		}()
	}
	for pageNum := first; pageNum <= last; pageNum++ {
		pages <- pageNum
	}
	close(pages)
	wg.Wait()
	doc.Close()

	failed.Range(func(any, any) bool {
		os.Exit(1)
		return false
	})
}

// unlock tries the owner password, then the user password, then the
// empty password.
func unlock(doc *pdf.Document, ownerPwd, userPwd string) error {
	var err error
	for _, pw := range []string{ownerPwd, userPwd, ""} {
		if err = doc.Decrypt(pw); err == nil {
			return nil
		}
	}
	return err
}

// pageScale converts the resolution or target size into pixels per PDF unit
func pageScale(page *pdf.Page, dpi float64, scaleTo int) float64 {
	if scaleTo > 0 {
		longest := max(page.CropBox.Width(), page.CropBox.Height())
		if longest > 0 {
			return float64(scaleTo) / longest
		}
	}
	return dpi / 72
}

func renderFile(r *render.Renderer, doc *pdf.Document, pageNum int, dpi float64, scaleTo int, background color.Color, format render.Format, path string) error {
	page, err := doc.GetPage(pageNum)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.RenderTo(f, pageNum, pageScale(page, dpi, scaleTo), background, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
