package model

import "telegram-pix-commerce/internal/domain"

// OfferingType is the product category; it determines how access is granted
// after an approved payment (invite link vs direct content delivery).
type OfferingType string

const (
	OfferingChannel    OfferingType = "channel"
	OfferingSingle     OfferingType = "single"
	OfferingSupergroup OfferingType = "supergroup"
)

func ParseOfferingType(s string) (OfferingType, bool) {
	switch OfferingType(s) {
	case OfferingChannel, OfferingSingle, OfferingSupergroup:
		return OfferingType(s), true
	}
	return "", false
}

// Product is one purchasable item of a tenant's catalog. Immutable after load.
type Product struct {
	ID             int64
	Name           string
	Description    string
	Price          float64
	TenantID       int64
	Active         bool
	Type           OfferingType
	PreviewContent string
	Content        string // invite target (chat id) or file URL, depending on Type
	PeriodMonths   int    // 0 means the grant never expires
}

func (p *Product) IsZero() bool { return p == nil || p.ID == 0 }

// NewProduct validates and constructs a product.
func NewProduct(id, tenantID int64, name string, price float64, typ OfferingType, content string, periodMonths int) (*Product, error) {
	if id == 0 || tenantID == 0 || name == "" || price <= 0 || periodMonths < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if _, ok := ParseOfferingType(string(typ)); !ok {
		return nil, domain.ErrInvalidArgument
	}
	return &Product{
		ID:           id,
		TenantID:     tenantID,
		Name:         name,
		Price:        price,
		Active:       true,
		Type:         typ,
		Content:      content,
		PeriodMonths: periodMonths,
	}, nil
}

// GroupedCatalog holds one tenant's products grouped by offering type with
// O(1) lookup by (type, id). Built once at tenant start; read-only afterwards.
type GroupedCatalog struct {
	TenantID int64
	groups   map[OfferingType]map[int64]*Product
	order    map[OfferingType][]*Product // stable listing order
}

func NewGroupedCatalog(tenantID int64, products []*Product) *GroupedCatalog {
	c := &GroupedCatalog{
		TenantID: tenantID,
		groups:   make(map[OfferingType]map[int64]*Product),
		order:    make(map[OfferingType][]*Product),
	}
	for _, p := range products {
		if p == nil || !p.Active {
			continue
		}
		if _, ok := c.groups[p.Type]; !ok {
			c.groups[p.Type] = make(map[int64]*Product)
		}
		if _, dup := c.groups[p.Type][p.ID]; dup {
			continue
		}
		c.groups[p.Type][p.ID] = p
		c.order[p.Type] = append(c.order[p.Type], p)
	}
	return c
}

// Lookup returns the product for (type, id) or nil.
func (c *GroupedCatalog) Lookup(typ OfferingType, id int64) *Product {
	if c == nil {
		return nil
	}
	return c.groups[typ][id]
}

// LookupAny returns the product with the given id regardless of offering
// type. The ledger stores only product ids, so activation paths resolve
// through here.
func (c *GroupedCatalog) LookupAny(id int64) *Product {
	if c == nil {
		return nil
	}
	for _, g := range c.groups {
		if p, ok := g[id]; ok {
			return p
		}
	}
	return nil
}

// Group returns the products of one offering type in load order.
func (c *GroupedCatalog) Group(typ OfferingType) []*Product {
	if c == nil {
		return nil
	}
	return c.order[typ]
}

// Types returns the offering types that have at least one product, in the
// fixed menu order channel, single, supergroup.
func (c *GroupedCatalog) Types() []OfferingType {
	if c == nil {
		return nil
	}
	var out []OfferingType
	for _, t := range []OfferingType{OfferingChannel, OfferingSingle, OfferingSupergroup} {
		if len(c.order[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Len is the total number of products across all groups.
func (c *GroupedCatalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, g := range c.order {
		n += len(g)
	}
	return n
}
