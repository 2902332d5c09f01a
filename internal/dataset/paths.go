// Package dataset reads the on-disk price series and tweet archives.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Paths locates one dataset's price and tweet directories.
type Paths struct {
	PriceDir string
	TweetDir string
}

var knownDatasets = map[string]Paths{
	"ACL18": {
		PriceDir: "ACL18/stocknet-dataset/price/preprocessed",
		TweetDir: "ACL18/stocknet-dataset/tweet/raw",
	},
	"CMIN": {
		PriceDir: "CMIN/CMIN-Dataset/CMIN-US/price/preprocessed",
		TweetDir: "CMIN/CMIN-Dataset/CMIN-US/news/raw",
	},
	"SEP": {
		PriceDir: "SEP/sn2/price/preprocessed",
		TweetDir: "SEP/sn2/tweet/raw",
	},
}

// Names lists the datasets with a known layout.
func Names() []string {
	names := make([]string, 0, len(knownDatasets))
	for name := range knownDatasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the directories of a named dataset under root. Non-empty
// priceDir and tweetDir override the table; with both set the name may be
// anything.
func Resolve(name, root, priceDir, tweetDir string) (Paths, error) {
	if priceDir != "" && tweetDir != "" {
		return Paths{PriceDir: priceDir, TweetDir: tweetDir}, nil
	}

	layout, ok := knownDatasets[strings.ToUpper(name)]
	if !ok {
		return Paths{}, fmt.Errorf("unknown dataset %q (known: %s)", name, strings.Join(Names(), ", "))
	}

	paths := Paths{
		PriceDir: filepath.Join(root, layout.PriceDir),
		TweetDir: filepath.Join(root, layout.TweetDir),
	}
	if priceDir != "" {
		paths.PriceDir = priceDir
	}
	if tweetDir != "" {
		paths.TweetDir = tweetDir
	}
	return paths, nil
}
