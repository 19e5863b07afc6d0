package atlas

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
)

// Compiled alias patterns are reused across calls. Resolved constructs are
// never cached; only the regexp compilation is.
const patternCacheSize = 512

var patternCache *lru.Cache

func init() {
	patternCache, _ = lru.New(patternCacheSize)
}

// compilePattern compiles an alias regex with the platform's prefix
// anchoring: a pattern must match from the start of the alias but need not
// consume it. "Cur.*" matches "Current" and not "MotorCurrent".
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Get(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, err
	}
	patternCache.Add(pattern, re)
	return re, nil
}

// Validate checks a spec before any network call. Name-based specs must
// name a metric from the device kind's vocabulary; regex-based specs must
// carry a non-empty, compilable pattern and an explicit construct kind.
func (m *MetricSpec) Validate() error {
	if m.Name != "" {
		vocab := VocabularyFor(m.DeviceKind)
		kind, ok := vocab[m.Name]
		if !ok {
			return fmt.Errorf("%w: %q is not a known metric for device kind %q",
				ErrInvalidMetric, m.Name, m.DeviceKind)
		}
		if m.ConstructKind == "" {
			m.ConstructKind = kind
		}
		return nil
	}

	if m.AliasRegex == "" {
		return fmt.Errorf("%w: neither name nor alias regex set", ErrInvalidMetric)
	}
	if m.ConstructKind == "" {
		return fmt.Errorf("%w: alias regex %q needs an explicit construct kind",
			ErrInvalidMetric, m.AliasRegex)
	}
	if _, err := compilePattern(m.AliasRegex); err != nil {
		return fmt.Errorf("%w: alias regex %q: %v", ErrInvalidMetric, m.AliasRegex, err)
	}
	return nil
}

// Matches is the resolved subset of a device's constructs, keyed by
// construct id and ordered by first match.
type Matches struct {
	ids  []string
	byID map[string]Construct
}

// Len reports the number of matched constructs.
func (m *Matches) Len() int { return len(m.ids) }

// IDs returns construct ids in first-match order.
func (m *Matches) IDs() []string { return m.ids }

// Get returns the matched construct for an id.
func (m *Matches) Get(id string) (Construct, bool) {
	ct, ok := m.byID[id]
	return ct, ok
}

// Each visits matched constructs in first-match order.
func (m *Matches) Each(fn func(Construct)) {
	for _, id := range m.ids {
		fn(m.byID[id])
	}
}

func (m *Matches) add(ct Construct) {
	if _, dup := m.byID[ct.ID]; dup {
		return
	}
	m.ids = append(m.ids, ct.ID)
	m.byID[ct.ID] = ct
}

// Match resolves metric specs against one device's catalog. Specs for
// other device kinds are ignored. Per construct kind the catalog is
// scanned once: a construct matches when its alias is among the exact
// names requested or any requested pattern matches prefix-anchored. A
// construct satisfying several specs still appears once, keyed by id.
func Match(catalog *Catalog, specs []MetricSpec) (*Matches, error) {
	matches := &Matches{byID: make(map[string]Construct)}
	device := catalog.Device()

	type kindFilter struct {
		names    map[string]bool
		patterns []*regexp.Regexp
	}
	byKind := make(map[ConstructKind]*kindFilter)
	kindOrder := make([]ConstructKind, 0, 5)

	for _, spec := range specs {
		if spec.DeviceKind != device.Kind {
			continue
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		kf := byKind[spec.ConstructKind]
		if kf == nil {
			kf = &kindFilter{names: make(map[string]bool)}
			byKind[spec.ConstructKind] = kf
			kindOrder = append(kindOrder, spec.ConstructKind)
		}
		if spec.Name != "" {
			kf.names[spec.Name] = true
			continue
		}
		re, err := compilePattern(spec.AliasRegex)
		if err != nil {
			return nil, fmt.Errorf("%w: alias regex %q: %v", ErrInvalidMetric, spec.AliasRegex, err)
		}
		kf.patterns = append(kf.patterns, re)
	}

	for _, kind := range kindOrder {
		kf := byKind[kind]
		for _, ct := range catalog.OfKind(kind) {
			if kf.names[ct.Alias] {
				matches.add(ct)
				continue
			}
			for _, re := range kf.patterns {
				if re.MatchString(ct.Alias) {
					matches.add(ct)
					break
				}
			}
		}
	}

	return matches, nil
}
