// inspect-content-stream prints the decoded content stream of a page
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

func main() {
	pageNum := flag.Int("p", 1, "page number")
	raw := flag.Bool("raw", false, "print the decoded bytes instead of parsed operations")
	ops := flag.String("ops", "", "comma separated operators to show, e.g. cm,Tm,Do")
	limit := flag.Int("n", 0, "stop after this many operations (0 for all)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: inspect-content-stream [options] <PDF-file>\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	doc, err := pdf.Open(flag.Arg(0))
	if err != nil {
		logger.Error("opening PDF", "file", flag.Arg(0), "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	page, err := doc.GetPage(*pageNum)
	if err != nil {
		logger.Error("loading page", "page", *pageNum, "error", err)
		os.Exit(1)
	}

	contents, err := page.GetContents()
	if err != nil {
		logger.Error("decoding content", "page", *pageNum, "error", err)
		os.Exit(1)
	}

	if *raw {
		os.Stdout.Write(contents)
		return
	}

	operations, err := pdf.ParseContent(contents)
	if err != nil {
		// the operations parsed before the error are still printed
		logger.Warn("content stream is damaged", "error", err)
	}

	filter := map[string]bool{}
	for _, op := range strings.Split(*ops, ",") {
		if op = strings.TrimSpace(op); op != "" {
			filter[op] = true
		}
	}

	fmt.Printf("Page %d: %d bytes, %d operations\n", *pageNum, len(contents), len(operations))
	shown := 0
	depth := 0
	for i, op := range operations {
		switch op.Operator {
		case "Q", "ET", "EMC":
			depth = max(0, depth-1)
		}
		if len(filter) == 0 || filter[op.Operator] {
			fmt.Printf("%5d %s%s\n", i, strings.Repeat("  ", depth), op)
			shown++
			if *limit > 0 && shown >= *limit {
				break
			}
		}
		switch op.Operator {
		case "q", "BT", "BMC", "BDC":
			depth++
		}
	}
}
