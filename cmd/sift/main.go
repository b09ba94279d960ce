// Command sift: compute the non-follow-back list from two export files.
// Usage:
//
//	sift --following following.json --followers followers.json --out non_followers.csv
//
// Accepts .csv and .json exports for either side.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/follow-sift/fsift/internal/roster"
)

const (
	flagFollowingName        = "following"
	flagFollowingDescription = "Path to the following export (.csv or .json)"
	flagFollowersName        = "followers"
	flagFollowersDescription = "Path to the followers export (.csv or .json)"
	flagOutName              = "out"
	flagOutDescription       = "Output CSV file path"
	defaultOutputFileName    = "non_followers.csv"

	missingInputsErrorMessage = "error: both --following and --followers are required"
	emptyCollectionFormat     = "%s: no usable records found"
	readFileErrorFormat       = "read %s: %v"
	normalizeErrorFormat      = "normalize %s: %v"
	createFileErrorFormat     = "create %s: %v"
	writeFileErrorFormat      = "write %s: %v"
	wroteOutputFormat         = "Wrote %s (%d non-followers out of %d followed)\n"

	csvColumnUsername  = "username"
	csvColumnTimestamp = "timestamp"
)

var csvHeaderColumns = []string{csvColumnUsername, csvColumnTimestamp}

func main() {
	var followingPath string
	var followersPath string
	var outputPath string

	flag.StringVar(&followingPath, flagFollowingName, "", flagFollowingDescription)
	flag.StringVar(&followersPath, flagFollowersName, "", flagFollowersDescription)
	flag.StringVar(&outputPath, flagOutName, defaultOutputFileName, flagOutDescription)
	flag.Parse()

	if followingPath == "" || followersPath == "" {
		fmt.Fprintln(os.Stderr, missingInputsErrorMessage)
		os.Exit(2)
	}

	followingRecords := normalizeExportFile(followingPath, roster.RoleFollowing)
	followerRecords := normalizeExportFile(followersPath, roster.RoleFollowers)
	if len(followingRecords) == 0 {
		dief(emptyCollectionFormat, followingPath)
	}
	if len(followerRecords) == 0 {
		dief(emptyCollectionFormat, followersPath)
	}

	nonFollowers := roster.Resolve(followingRecords, followerRecords)
	if writeErr := writeNonFollowersCSV(outputPath, nonFollowers); writeErr != nil {
		fmt.Fprintln(os.Stderr, writeErr)
		os.Exit(1)
	}
	fmt.Printf(wroteOutputFormat, outputPath, len(nonFollowers), len(followingRecords))
}

func normalizeExportFile(path string, role roster.Role) []roster.UserRecord {
	contents, readErr := os.ReadFile(path)
	if readErr != nil {
		dief(readFileErrorFormat, path, readErr)
	}
	records, normalizeErr := roster.NormalizeFile(filepath.Base(path), contents, role)
	if normalizeErr != nil {
		dief(normalizeErrorFormat, path, normalizeErr)
	}
	return records
}

func writeNonFollowersCSV(path string, records []roster.UserRecord) error {
	outputFile, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf(createFileErrorFormat, path, createErr)
	}
	defer outputFile.Close()

	csvWriter := csv.NewWriter(outputFile)
	defer csvWriter.Flush()

	if writeErr := csvWriter.Write(csvHeaderColumns); writeErr != nil {
		return fmt.Errorf(writeFileErrorFormat, path, writeErr)
	}
	for _, record := range records {
		timestampCell := ""
		if record.Timestamp != nil {
			timestampCell = strconv.FormatInt(*record.Timestamp, 10)
		}
		if writeErr := csvWriter.Write([]string{record.Username, timestampCell}); writeErr != nil {
			return fmt.Errorf(writeFileErrorFormat, path, writeErr)
		}
	}
	return csvWriter.Error()
}

func dief(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
