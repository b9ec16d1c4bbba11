// pdfinfo prints document metadata and the page geometry used for rendering
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

var (
	firstPage int
	lastPage  int
	box       bool
	ownerPw   string
	userPw    string
	scale     float64
	printHelp bool
)

func init() {
	flag.IntVar(&firstPage, "f", 1, "first page to examine")
	flag.IntVar(&lastPage, "l", 0, "last page to examine")
	flag.BoolVar(&box, "box", false, "print the page bounding boxes")
	flag.StringVar(&ownerPw, "opw", "", "owner password")
	flag.StringVar(&userPw, "upw", "", "user password")
	flag.Float64Var(&scale, "scale", 1, "scale used to report the raster size of each page")
	flag.BoolVar(&printHelp, "h", false, "print usage information")
	flag.BoolVar(&printHelp, "help", false, "print usage information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pdfinfo [options] <PDF-file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if printHelp {
		flag.Usage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	inputFile := args[0]
	doc, err := pdf.Open(inputFile)
	encrypted := errors.Is(err, pdf.ErrEncrypted)
	if encrypted {
		if err = doc.Decrypt(ownerPw); err != nil {
			err = doc.Decrypt(userPw)
		}
	}
	if err != nil {
		logger.Error("opening PDF", "file", inputFile, "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	for _, key := range []pdf.Name{"Title", "Subject", "Keywords", "Author", "Creator", "Producer", "CreationDate", "ModDate"} {
		if s, ok := doc.Resolve(doc.Info[key]).(pdf.String); ok {
			fmt.Printf("%-15s %s\n", string(key)+":", s.Text())
		}
	}
	fmt.Printf("%-15s %s\n", "Encrypted:", yesNo(encrypted))
	fmt.Printf("%-15s %s\n", "Repaired:", yesNo(doc.Repaired))
	fmt.Printf("%-15s %d\n", "Pages:", doc.NumPages())
	fmt.Printf("%-15s %s\n", "PDF version:", doc.Version)

	first := max(1, firstPage)
	last := lastPage
	if last == 0 || last > doc.NumPages() {
		last = doc.NumPages()
	}
	if lastPage == 0 && first == 1 {
		last = min(last, 1)
	}

	for n := first; n <= last; n++ {
		page, err := doc.GetPage(n)
		if err != nil {
			logger.Warn("loading page", "page", n, "error", err)
			continue
		}
		label := "Page size:"
		if last > 1 {
			label = fmt.Sprintf("Page %4d size:", n)
		}
		w, h := page.CropBox.Width(), page.CropBox.Height()
		fmt.Printf("%-15s %g x %g pts\n", label, w, h)
		fmt.Printf("%-15s %d\n", "Page rot:", page.Rotate)
		if page.Rotate%180 != 0 {
			w, h = h, w
		}
		fmt.Printf("%-15s %.0f x %.0f px at scale %g\n", "Raster size:", w*scale, h*scale, scale)
		fmt.Printf("%-15s %d\n", "Annotations:", len(page.Annotations()))
		if box {
			printBox("MediaBox:", page.MediaBox)
			printBox("CropBox:", page.CropBox)
		}
	}
}

func printBox(label string, r pdf.Rectangle) {
	fmt.Printf("%-15s %8.2f %8.2f %8.2f %8.2f\n", label, r.LLX, r.LLY, r.URX, r.URY)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
