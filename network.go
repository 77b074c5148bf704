package ggk

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Node types in a NetworkGraph.
const (
	NodeFunder  = "funder"
	NodeGrantee = "grantee"
)

// Link types record where a grant was seen: the curated central-entity list
// or a bulk filing.
const (
	LinkCurated = "curated"
	LinkFiling  = "filing"
)

// Node is one organization in the derived network. GrantsGiven and
// GrantsReceived are dollar totals over the emitted links.
type Node struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Central        bool   `json:"central,omitempty"`
	Meta           *Meta  `json:"metadata,omitempty"`
	GrantsReceived int64  `json:"grantsReceived,omitempty"`
	GrantsGiven    int64  `json:"grantsGiven,omitempty"`
}

// Link is one grant in the derived network. Grants are never merged across
// years - each year's grant is its own link.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Amount int64  `json:"amount"`
	Year   int    `json:"year"`
	Type   string `json:"type"`
}

// NetworkGraph is the small two-layer ego-graph around one central
// foundation: central -> grantees, and for each grantee every other funder
// recorded in the dataset. Every node is reachable from the central node in
// at most two hops. It is rebuilt in full on every pipeline run.
type NetworkGraph struct {
	Nodes []*Node `json:"nodes"`
	Links []Link  `json:"links"`
}

// NetworkBuilder derives a NetworkGraph from a CompleteDataset.
type NetworkBuilder struct {
	// Log receives notes about ambiguous recipient resolution. Defaults to
	// NopLogger.
	Log Logger

	ds     *CompleteDataset
	byName map[string][]string // normalized name -> org IDs, sorted
	nodes  map[string]*Node
	order  []string
	links  []Link
}

// NewNetworkBuilder returns a builder over ds. The normalized-name index is
// constructed once, up front, with candidates in sorted ID order so that
// resolution is deterministic.
func NewNetworkBuilder(ds *CompleteDataset) *NetworkBuilder {
	nb := &NetworkBuilder{
		Log:    NopLogger{},
		ds:     ds,
		byName: make(map[string][]string),
		nodes:  make(map[string]*Node),
	}
	ids := make([]string, 0, len(ds.Organizations))
	for id := range ds.Organizations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		norm := NormalizeName(ds.Organizations[id].Name)
		if norm == "" {
			continue
		}
		nb.byName[norm] = append(nb.byName[norm], id)
	}
	return nb
}

// Build produces the ego-graph around the central identity. curated holds the
// externally maintained central-entity grant list; grants recorded in the
// dataset under the central entity's own Foundation entry are included as
// well.
func (nb *NetworkBuilder) Build(centralID, centralName string, curated []Grant) *NetworkGraph {
	central := nb.ensureNode(centralID, centralName, NodeFunder)
	central.Central = true
	if f, ok := nb.ds.Foundations[centralID]; ok {
		central.Name = f.Name
		meta := f.Meta
		central.Meta = &meta
	}

	for _, g := range curated {
		nb.addCentralGrant(central, g, LinkCurated)
	}
	if f, ok := nb.ds.Foundations[centralID]; ok {
		for _, g := range f.GrantsGiven {
			nb.addCentralGrant(central, g, LinkFiling)
		}
	}

	// second layer: other funders of each resolved grantee
	for _, id := range append([]string(nil), nb.order...) {
		node := nb.nodes[id]
		if node.Type != NodeGrantee {
			continue
		}
		org, ok := nb.ds.Organizations[id]
		if !ok {
			continue
		}
		for _, rg := range org.GrantsReceived {
			if rg.FunderID == centralID {
				continue
			}
			funder := nb.ensureNode(rg.FunderID, rg.FunderName, NodeFunder)
			if f, ok := nb.ds.Foundations[rg.FunderID]; ok && funder.Meta == nil {
				meta := f.Meta
				funder.Meta = &meta
			}
			nb.addLink(Link{Source: rg.FunderID, Target: id, Amount: rg.Amount, Year: rg.TaxYear, Type: LinkFiling})
		}
	}

	g := &NetworkGraph{Links: nb.links}
	for _, id := range nb.order {
		g.Nodes = append(g.Nodes, nb.nodes[id])
	}
	if g.Nodes == nil {
		g.Nodes = []*Node{}
	}
	if g.Links == nil {
		g.Links = []Link{}
	}
	return g
}

func (nb *NetworkBuilder) addCentralGrant(central *Node, g Grant, linkType string) {
	if !g.Valid() {
		return
	}
	id, name, meta := nb.resolveRecipient(g)
	node := nb.ensureNode(id, name, NodeGrantee)
	if node.Meta == nil {
		node.Meta = meta
	}
	nb.addLink(Link{Source: central.ID, Target: id, Amount: g.Amount, Year: g.TaxYear, Type: linkType})
}

// resolveRecipient maps a grant to an organization key. A usable tax ID wins;
// otherwise the recipient's normalized name is resolved against the dataset:
// one candidate is used directly, several are disambiguated by city+state
// (falling back to the first), and none mints a deterministic placeholder so
// grantees absent from the bulk data stay visible.
func (nb *NetworkBuilder) resolveRecipient(g Grant) (id, name string, meta *Meta) {
	if ValidEIN(g.RecipientEIN) {
		id = CanonicalEIN(g.RecipientEIN)
		name = g.RecipientName
		if org, ok := nb.ds.Organizations[id]; ok {
			name = org.Name
			meta = org.Meta
		}
		return id, name, meta
	}
	cands := nb.byName[NormalizeName(g.RecipientName)]
	switch len(cands) {
	case 0:
		return PlaceholderKey(g.RecipientName), g.RecipientName, nil
	case 1:
		org := nb.ds.Organizations[cands[0]]
		return org.ID, org.Name, org.Meta
	}
	for _, cand := range cands {
		org := nb.ds.Organizations[cand]
		if org.Meta != nil && sameLoc(org.Meta.City, g.RecipientCity) && sameLoc(org.Meta.State, g.RecipientState) {
			return org.ID, org.Name, org.Meta
		}
	}
	nb.Log.Printf("ambiguous recipient '%v': %d candidates, no address match, using %v", g.RecipientName, len(cands), cands[0])
	org := nb.ds.Organizations[cands[0]]
	return org.ID, org.Name, org.Meta
}

func sameLoc(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

func (nb *NetworkBuilder) ensureNode(id, name, typ string) *Node {
	if n, ok := nb.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Name: name, Type: typ}
	nb.nodes[id] = n
	nb.order = append(nb.order, id)
	return n
}

func (nb *NetworkBuilder) addLink(l Link) {
	nb.links = append(nb.links, l)
	if src, ok := nb.nodes[l.Source]; ok {
		src.GrantsGiven += l.Amount
	}
	if tgt, ok := nb.nodes[l.Target]; ok {
		tgt.GrantsReceived += l.Amount
	}
}

// WriteNetwork writes the derived graph as a single JSON document - the
// display layer's sole data dependency.
func WriteNetwork(path string, g *NetworkGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating network file")
	}
	if err := json.NewEncoder(f).Encode(g); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrap(err, "encoding network")
	}
	return errors.Wrap(f.Close(), "closing network file")
}
