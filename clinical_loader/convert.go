package main

import (
	"fmt"
	"io"
	"os"
	"time"
)

type convertResult struct {
	Rows      int
	Malformed int
}

// convertFile rewrites one CSV extract as a Parquet staging file.
func convertFile[T any](inputPath, outputPath string, batchSize int) (convertResult, error) {
	start := time.Now()

	src, err := newCSVSource[T](inputPath, batchSize)
	if err != nil {
		return convertResult{}, fmt.Errorf("open CSV: %w", err)
	}
	defer src.Close()

	writer, err := newStagingWriter[T](outputPath)
	if err != nil {
		return convertResult{}, fmt.Errorf("create Parquet: %w", err)
	}

	fileSize := int64(0)
	if fi, _ := os.Stat(inputPath); fi != nil {
		fileSize = fi.Size()
	}

	fmt.Printf("Input:   %s\n", inputPath)
	fmt.Printf("Output:  %s\n", outputPath)
	if fileSize > 0 {
		fmt.Printf("Size:    %.1f MB\n", float64(fileSize)/1024/1024)
	}
	fmt.Println()

	lastLog := time.Now()
	for {
		rows, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			writer.Abort()
			return convertResult{}, fmt.Errorf("read CSV row %d: %w", src.RowNum(), err)
		}
		if err := writer.Append(rows); err != nil {
			writer.Abort()
			return convertResult{}, err
		}

		if time.Since(lastLog) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			fmt.Printf("  progress: %d rows (%.0f rows/s)\n", writer.Rows(), float64(writer.Rows())/elapsed)
			lastLog = time.Now()
		}
	}

	if err := writer.Finish(); err != nil {
		return convertResult{}, err
	}

	res := convertResult{Rows: writer.Rows(), Malformed: src.Malformed()}

	elapsed := time.Since(start)
	outSize := int64(0)
	if fi, _ := os.Stat(outputPath); fi != nil {
		outSize = fi.Size()
	}

	fmt.Printf("Done in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Parquet rows: %d\n", res.Rows)
	fmt.Printf("  Malformed:    %d\n", res.Malformed)
	if fileSize > 0 && outSize > 0 {
		fmt.Printf("  Input size:   %.1f MB\n", float64(fileSize)/1024/1024)
		fmt.Printf("  Output size:  %.1f MB (%.1fx compression)\n",
			float64(outSize)/1024/1024, float64(fileSize)/float64(outSize))
	}

	return res, nil
}
