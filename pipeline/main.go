// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package pipeline runs the full batch build: fetch the monthly filing
// archives, extract and parse them, merge the results into a complete dataset,
// and derive the network document around the central entity.
package pipeline

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fdngraph/ggk"
	"github.com/fdngraph/ggk/aws/s3"
	"github.com/fdngraph/ggk/cache"
	"github.com/fdngraph/ggk/curated"
	"github.com/fdngraph/ggk/fetch"
	"github.com/fdngraph/ggk/termstat"
	"github.com/fdngraph/ggk/xml990"
	"github.com/fdngraph/ggk/zipx"
	"github.com/pkg/errors"
)

// Default central identity. The pipeline was built around this foundation;
// any other may be supplied at invocation, though the curated grant list only
// applies to the default.
const (
	DefaultCentralEIN  = "36-3356037"
	DefaultCentralName = "Meridian Family Foundation"
)

// Main holds the config for the pipeline command. Only the central identity
// and output location are settable at invocation - the bulk-data layout, year
// range, and concurrency shape change rarely enough that they live here as
// code.
type Main struct {
	Central     string `help:"Tax ID of the central entity to build the network around."`
	CentralName string `help:"Display name for the central entity."`
	Data        string `help:"Directory for the cache, dataset, and network output."`
	Verbose     bool   `help:"Enable debug logging."`

	years         []int
	urlTemplate   string
	s3KeyTemplate string
	s3Bucket      string
	s3Region      string
	nestedDir     string
	curatedDir    string
	monthWorkers  int
	parseWorkers  int
	chunkSize     int
	maxFilings    int

	log   ggk.Logger
	stats ggk.Statter
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	return &Main{
		Central:     DefaultCentralEIN,
		CentralName: DefaultCentralName,
		Data:        "data",

		years:         []int{2022, 2023, 2024},
		urlTemplate:   "https://apps.irs.gov/pub/epostcard/990/xml/{year}/download990xml_{year}_{month}.zip",
		s3KeyTemplate: "990/xml/{year}/download990xml_{year}_{month}.zip",
		nestedDir:     "xml",
		curatedDir:    "curated",
		monthWorkers:  3,
		parseWorkers:  8,
		chunkSize:     512,
	}
}

// Run executes the pipeline end to end. Months whose archive cannot be
// downloaded - never published, or the remote is unreachable - are logged and
// skipped; structural failures (an archive that extracts to nothing, a broken
// cache) abort the run so a partial dataset is never written.
func (m *Main) Run() error {
	if m.log == nil {
		l := log.New(os.Stderr, "", log.LstdFlags)
		if m.Verbose {
			m.log = ggk.VerboseLogger{Logger: l}
		} else {
			m.log = ggk.StdLogger{Logger: l}
		}
	}
	if m.stats == nil {
		m.stats = termstat.NewCollector(os.Stderr)
	}
	start := time.Now()

	if err := os.MkdirAll(m.Data, 0755); err != nil {
		return errors.Wrap(err, "creating data directory")
	}
	c, err := cache.Open(filepath.Join(m.Data, "filings.db"))
	if err != nil {
		return errors.Wrap(err, "opening filing cache")
	}
	defer c.Close()

	builder := ggk.NewDatasetBuilder()
	builder.Log = m.log
	if err := m.processMonths(c, builder); err != nil {
		return err
	}

	// the name index is scratch space for this run; stale entries from an
	// earlier run could resolve names to organizations that no longer exist
	indexDir := filepath.Join(m.Data, "nameindex")
	if err := os.RemoveAll(indexDir); err != nil {
		return errors.Wrap(err, "clearing name index")
	}
	idx, err := ggk.NewLevelNameIndex(indexDir)
	if err != nil {
		return errors.Wrap(err, "opening name index")
	}
	defer idx.Close()
	if err := builder.Consolidate(idx); err != nil {
		return errors.Wrap(err, "consolidating entities")
	}

	ds := builder.Dataset(time.Now())
	datasetPath := filepath.Join(m.Data, "dataset.json")
	if err := ggk.WriteDataset(datasetPath, ds); err != nil {
		return errors.Wrap(err, "writing dataset")
	}
	m.log.Printf("wrote %v: %d foundations, %d organizations, %d grants",
		datasetPath, ds.Meta.FoundationsProcessed, len(ds.Organizations), ds.Meta.TotalGrants)

	grants, err := m.loadCurated()
	if err != nil {
		return err
	}
	g, err := BuildNetwork(ds, ggk.CanonicalEIN(m.Central), m.CentralName, grants, m.log)
	if err != nil {
		return err
	}
	networkPath := filepath.Join(m.Data, "network.json")
	if err := ggk.WriteNetwork(networkPath, g); err != nil {
		return errors.Wrap(err, "writing network")
	}
	m.log.Printf("wrote %v: %d nodes, %d links", networkPath, len(g.Nodes), len(g.Links))
	m.log.Printf("pipeline finished in %v", time.Since(start).Round(time.Second))
	return nil
}

// processMonths walks every (year, month) pair, a few months in flight at a
// time. Each month is independent; the builder merge is commutative, so
// completion order does not matter. Only structural failures come back as
// errors - download trouble is handled inside processMonth.
func (m *Main) processMonths(c *cache.Cache, builder *ggk.DatasetBuilder) error {
	type ym struct{ year, month int }
	var months []ym
	for _, year := range m.years {
		for month := 1; month <= 12; month++ {
			months = append(months, ym{year, month})
		}
	}

	sem := make(chan struct{}, m.monthWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs ggk.Errors
	for _, my := range months {
		wg.Add(1)
		sem <- struct{}{}
		go func(year, month int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.processMonth(c, builder, year, month); err != nil {
				mu.Lock()
				errs = append(errs, errors.Wrapf(err, "month %04d-%02d", year, month))
				mu.Unlock()
			}
		}(my.year, my.month)
	}
	wg.Wait()
	if len(errs) > 0 {
		return errors.Wrap(errs, "processing months")
	}
	return nil
}

// processMonth produces the month's filing records - from the cache when the
// month was fully processed before, otherwise by download, extract, and parse
// - and merges them into the builder in fixed-size chunks.
func (m *Main) processMonth(c *cache.Cache, builder *ggk.DatasetBuilder, year, month int) error {
	recs, ok, err := c.Get(year, month)
	if err != nil {
		return errors.Wrap(err, "reading cache")
	}
	if ok {
		m.stats.Count("cache.hit", 1, 1)
		m.log.Debugf("cache hit for %04d-%02d: %d records", year, month, len(recs))
		m.addChunked(builder, recs)
		return nil
	}
	m.stats.Count("cache.miss", 1, 1)

	tmp, err := ioutil.TempDir("", fmt.Sprintf("ggk-%04d-%02d-", year, month))
	if err != nil {
		return errors.Wrap(err, "creating temp dir")
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, "filings.zip")
	if err := m.download(year, month, archive); err != nil {
		if fetch.IsNotFound(err) {
			m.log.Printf("no archive published for %04d-%02d, skipping", year, month)
			m.stats.Count("fetch.notfound", 1, 1)
			return nil
		}
		// a month we can't reach now may work on a rerun; nothing is cached
		// for it, so the rerun will retry from scratch
		m.log.Printf("downloading archive for %04d-%02d: %v, skipping", year, month, err)
		m.stats.Count("fetch.failed", 1, 1)
		return nil
	}

	extracted := filepath.Join(tmp, "extracted")
	ext := zipx.NewExtractor()
	ext.Log = m.log
	if _, err := ext.Extract(archive, extracted); err != nil {
		return errors.Wrap(err, "extracting archive")
	}
	dir, err := zipx.FindFilingsDir(extracted, m.nestedDir)
	if err != nil {
		return errors.Wrap(err, "locating filings")
	}
	files, err := zipx.ListFilings(dir)
	if err != nil {
		return errors.Wrap(err, "listing filings")
	}
	if m.maxFilings > 0 && len(files) > m.maxFilings {
		files = files[:m.maxFilings]
	}

	recs = m.parseAll(files, year)
	m.log.Printf("parsed %04d-%02d: %d records from %d filings", year, month, len(recs), len(files))
	if err := c.Put(year, month, recs); err != nil {
		return errors.Wrap(err, "caching records")
	}
	m.addChunked(builder, recs)
	return nil
}

func (m *Main) addChunked(builder *ggk.DatasetBuilder, recs []ggk.FilingRecord) {
	for i := 0; i < len(recs); i += m.chunkSize {
		end := i + m.chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		builder.AddBatch(recs[i:end])
	}
}

func (m *Main) download(year, month int, dest string) error {
	rep := strings.NewReplacer("{year}", strconv.Itoa(year), "{month}", strconv.Itoa(month))
	if m.s3Bucket != "" {
		f, err := s3.NewFetcher(m.s3Region, m.s3Bucket)
		if err != nil {
			return errors.Wrap(err, "getting s3 fetcher")
		}
		f.Log, f.Stats = m.log, m.stats
		_, err = f.Download(rep.Replace(m.s3KeyTemplate), dest)
		return err
	}
	f := fetch.NewFetcher()
	f.Log, f.Stats = m.log, m.stats
	_, err := f.Download(rep.Replace(m.urlTemplate), dest)
	return err
}

// parseAll parses the filing documents with a pool of workers. Unparseable
// filings are counted and skipped - one malformed document never fails a
// month.
func (m *Main) parseAll(files []string, fallbackYear int) []ggk.FilingRecord {
	paths := make(chan string)
	go func() {
		for _, p := range files {
			paths <- p
		}
		close(paths)
	}()

	out := make(chan ggk.FilingRecord, m.chunkSize)
	var wg sync.WaitGroup
	for i := 0; i < m.parseWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range paths {
				doc, err := ioutil.ReadFile(p)
				if err != nil {
					m.stats.Count("filings.skipped", 1, 1)
					m.log.Debugf("reading %v: %v", p, err)
					continue
				}
				rec, err := xml990.Parse(doc, fallbackYear)
				if err != nil {
					m.stats.Count("filings.skipped", 1, 1)
					m.log.Debugf("skipping %v: %v", filepath.Base(p), err)
					continue
				}
				m.stats.Count("filings.parsed", 1, 1)
				out <- *rec
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	recs := make([]ggk.FilingRecord, 0, len(files))
	for rec := range out {
		recs = append(recs, rec)
	}
	return recs
}

// loadCurated reads the per-year curated grant sheets for the central entity.
// Missing sheets are fine - the curated list only exists for the default
// central identity.
func (m *Main) loadCurated() ([]ggk.Grant, error) {
	var grants []ggk.Grant
	for _, year := range m.years {
		path := filepath.Join(m.curatedDir, fmt.Sprintf("grants_%d.csv", year))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		gs, err := curated.Load(path, year)
		if err != nil {
			return nil, errors.Wrapf(err, "loading curated grants for %d", year)
		}
		m.log.Debugf("loaded %d curated grants for %d", len(gs), year)
		grants = append(grants, gs...)
	}
	return grants, nil
}
