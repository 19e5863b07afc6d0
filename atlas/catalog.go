package atlas

// Catalog normalizes a device's five capability lists into one uniform,
// kind-tagged collection of constructs. Building a catalog is a pure
// transformation of the topology snapshot; no network access happens here.
type Catalog struct {
	device     *Device
	constructs []Construct
	byKind     map[ConstructKind][]Construct
	byID       map[string]Construct
}

// NewCatalog builds the catalog for one device. The per-kind table is
// precomputed once so lookups never reach for reflection or dynamic
// attribute access. A device with zero constructs of a kind simply has an
// empty slice for that kind.
func NewCatalog(device *Device) *Catalog {
	c := &Catalog{
		device: device,
		byKind: make(map[ConstructKind][]Construct, 5),
		byID:   make(map[string]Construct),
	}

	c.add(KindControlPoint, device.ControlPoints)
	c.add(KindMetric, device.Metrics)
	c.add(KindOutput, device.Outputs)
	c.add(KindCondition, device.Conditions)

	// Settings carry a name on the wire; the catalog exposes it as the
	// alias so matching treats all kinds uniformly.
	settings := make([]Construct, 0, len(device.Settings))
	for _, s := range device.Settings {
		settings = append(settings, Construct{
			ID:    s.ID,
			Alias: s.Name,
			Kind:  KindSetting,
			Unit:  s.Unit,
		})
	}
	c.add(KindSetting, settings)

	return c
}

func (c *Catalog) add(kind ConstructKind, constructs []Construct) {
	tagged := make([]Construct, 0, len(constructs))
	for _, ct := range constructs {
		ct.Kind = kind
		tagged = append(tagged, ct)
		c.constructs = append(c.constructs, ct)
		c.byID[ct.ID] = ct
	}
	c.byKind[kind] = tagged
}

// Device returns the device this catalog was built from.
func (c *Catalog) Device() *Device { return c.device }

// Constructs returns every construct on the device across all five kinds,
// in capability-list order.
func (c *Catalog) Constructs() []Construct { return c.constructs }

// OfKind returns the constructs of one kind, empty when the device has
// none of that kind.
func (c *Catalog) OfKind(kind ConstructKind) []Construct { return c.byKind[kind] }

// Lookup finds a construct by id.
func (c *Catalog) Lookup(id string) (Construct, bool) {
	ct, ok := c.byID[id]
	return ct, ok
}
