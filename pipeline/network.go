package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fdngraph/ggk"
	"github.com/fdngraph/ggk/curated"
	"github.com/pkg/errors"
)

// BuildNetwork derives the ego-graph around the central identity from a
// complete dataset.
func BuildNetwork(ds *ggk.CompleteDataset, centralID, centralName string, grants []ggk.Grant, logger ggk.Logger) (*ggk.NetworkGraph, error) {
	if !ggk.ValidEIN(centralID) {
		return nil, errors.Errorf("invalid central tax ID %q", centralID)
	}
	nb := ggk.NewNetworkBuilder(ds)
	nb.Log = logger
	return nb.Build(centralID, centralName, grants), nil
}

// NetworkMain holds the config for the network command, which rebuilds the
// network document from an already-written dataset without refetching or
// reparsing anything.
type NetworkMain struct {
	Dataset     string `help:"Dataset JSON written by a previous pipeline run."`
	Out         string `help:"Where to write the network JSON."`
	Central     string `help:"Tax ID of the central entity to build the network around."`
	CentralName string `help:"Display name for the central entity."`
	CuratedDir  string `help:"Directory of per-year curated grant sheets."`
	Verbose     bool   `help:"Enable debug logging."`
}

// NewNetworkMain gets a new NetworkMain with default values.
func NewNetworkMain() *NetworkMain {
	return &NetworkMain{
		Dataset:     "data/dataset.json",
		Out:         "data/network.json",
		Central:     DefaultCentralEIN,
		CentralName: DefaultCentralName,
		CuratedDir:  "curated",
	}
}

// Run reads the dataset, derives the network, and writes it out.
func (m *NetworkMain) Run() error {
	var logger ggk.Logger = ggk.StdLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
	if m.Verbose {
		logger = ggk.VerboseLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
	}

	ds, err := ggk.ReadDataset(m.Dataset)
	if err != nil {
		return errors.Wrap(err, "reading dataset")
	}

	var grants []ggk.Grant
	for year := range yearsOf(ds) {
		path := filepath.Join(m.CuratedDir, fmt.Sprintf("grants_%d.csv", year))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		gs, err := curated.Load(path, year)
		if err != nil {
			return errors.Wrapf(err, "loading curated grants for %d", year)
		}
		grants = append(grants, gs...)
	}

	g, err := BuildNetwork(ds, ggk.CanonicalEIN(m.Central), m.CentralName, grants, logger)
	if err != nil {
		return err
	}
	if err := ggk.WriteNetwork(m.Out, g); err != nil {
		return errors.Wrap(err, "writing network")
	}
	logger.Printf("wrote %v: %d nodes, %d links", m.Out, len(g.Nodes), len(g.Links))
	return nil
}

// yearsOf collects the tax years present in the dataset's received grants, so
// the network command does not need the pipeline's year range as config.
func yearsOf(ds *ggk.CompleteDataset) map[int]bool {
	years := make(map[int]bool)
	for _, org := range ds.Organizations {
		for _, rg := range org.GrantsReceived {
			if rg.TaxYear != 0 {
				years[rg.TaxYear] = true
			}
		}
	}
	return years
}
