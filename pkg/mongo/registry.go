package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Collection names used by Registry.
const (
	TenantsCollection         = "tenants"
	OrgsCollection            = "orgs"
	DatabaseConfigsCollection = "tenant_db_configs"
)

// Finder loads a single document from collection into dst.
// It returns mongo.ErrNoDocuments when nothing matches.
type Finder interface {
	FindOne(ctx context.Context, collection string, filter any, dst any) error
}

// DatabaseFinder adapts a *mongo.Database to Finder.
type DatabaseFinder struct {
	DB *mongo.Database
}

func (f DatabaseFinder) FindOne(ctx context.Context, collection string, filter any, dst any) error {
	return f.DB.Collection(collection).FindOne(ctx, filter).Decode(dst)
}

type domainDoc struct {
	Host     string `bson:"host"`
	OrgID    string `bson:"org_id,omitempty"`
	Verified bool   `bson:"verified"`
}

type tenantDoc struct {
	ID            string          `bson:"_id"`
	Slug          string          `bson:"slug"`
	Name          string          `bson:"name"`
	Status        string          `bson:"status"`
	PrimaryDomain string          `bson:"primary_domain,omitempty"`
	Features      tenant.Features `bson:"features"`
	Domains       []domainDoc     `bson:"domains,omitempty"`
}

type orgDoc struct {
	ID         string `bson:"_id"`
	TenantID   string `bson:"tenant_id"`
	Slug       string `bson:"slug"`
	SchemaName string `bson:"schema_name"`
	Status     string `bson:"status"`
	IsDefault  bool   `bson:"is_default"`
}

type dbConfigDoc struct {
	TenantID   string `bson:"_id"`
	Ciphertext string `bson:"ciphertext"`
	KeySalt    []byte `bson:"key_salt"`
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidDocument, fmt.Errorf("%s %q: %w", field, raw, err))
	}
	return id, nil
}

func (d tenantDoc) toTenant() (*tenant.Tenant, error) {
	id, err := parseID("tenant _id", d.ID)
	if err != nil {
		return nil, err
	}
	return &tenant.Tenant{
		ID:            id,
		Slug:          d.Slug,
		Name:          d.Name,
		Status:        d.Status,
		PrimaryDomain: d.PrimaryDomain,
		Features:      d.Features,
	}, nil
}

func (d orgDoc) toOrg() (*tenant.Org, error) {
	id, err := parseID("org _id", d.ID)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("org tenant_id", d.TenantID)
	if err != nil {
		return nil, err
	}
	schema := d.SchemaName
	if schema == "" {
		schema = tenant.DefaultSchema
	}
	return &tenant.Org{
		ID:         id,
		TenantID:   tid,
		Slug:       d.Slug,
		SchemaName: schema,
		Status:     d.Status,
		IsDefault:  d.IsDefault,
	}, nil
}

// Registry implements tenant.Registry over MongoDB collections.
// Slugs and domain hosts are stored lowercase.
type Registry struct {
	finder Finder
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a Registry reading through finder.
func NewRegistry(finder Finder, opts ...RegistryOption) *Registry {
	r := &Registry{finder: finder, logger: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDatabaseRegistry is NewRegistry over db.
func NewDatabaseRegistry(db *mongo.Database, opts ...RegistryOption) *Registry {
	return NewRegistry(DatabaseFinder{DB: db}, opts...)
}

func (r *Registry) find(ctx context.Context, collection string, filter bson.M, dst any, notFound error) error {
	err := r.finder.FindOne(ctx, collection, filter, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	default:
		r.logger.ErrorContext(ctx, "registry lookup failed",
			logger.Component("mongo"),
			slog.String("collection", collection),
			logger.Error(err),
		)
		return errors.Join(ErrQueryFailed, err)
	}
}

func (r *Registry) findTenant(ctx context.Context, filter bson.M) (*tenant.Tenant, *tenantDoc, error) {
	var doc tenantDoc
	if err := r.find(ctx, TenantsCollection, filter, &doc, tenant.ErrTenantNotFound); err != nil {
		return nil, nil, err
	}
	t, err := doc.toTenant()
	if err != nil {
		return nil, nil, err
	}
	return t, &doc, nil
}

func (r *Registry) findOrg(ctx context.Context, filter bson.M) (*tenant.Org, error) {
	var doc orgDoc
	if err := r.find(ctx, OrgsCollection, filter, &doc, tenant.ErrOrgNotFound); err != nil {
		return nil, err
	}
	return doc.toOrg()
}

func (r *Registry) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, _, err := r.findTenant(ctx, bson.M{"_id": id.String()})
	return t, err
}

func (r *Registry) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, _, err := r.findTenant(ctx, bson.M{"slug": strings.ToLower(slug)})
	return t, err
}

// GetTenantByDomain matches a verified entry of the tenant's domains array.
// Entries without org_id point at the default org.
func (r *Registry) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, *tenant.Org, error) {
	host := strings.ToLower(domain)
	t, doc, err := r.findTenant(ctx, bson.M{
		"domains": bson.M{"$elemMatch": bson.M{"host": host, "verified": true}},
	})
	if errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, nil, tenant.ErrDomainNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var orgRef string
	for _, d := range doc.Domains {
		if d.Host == host && d.Verified {
			orgRef = d.OrgID
			break
		}
	}

	var o *tenant.Org
	if orgRef == "" {
		o, err = r.GetDefaultOrg(ctx, t.ID)
	} else {
		o, err = r.findOrg(ctx, bson.M{"_id": orgRef})
	}
	if err != nil {
		return nil, nil, err
	}
	return t, o, nil
}

func (r *Registry) GetOrg(ctx context.Context, id uuid.UUID) (*tenant.Org, error) {
	return r.findOrg(ctx, bson.M{"_id": id.String()})
}

func (r *Registry) GetOrgBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*tenant.Org, error) {
	return r.findOrg(ctx, bson.M{"tenant_id": tenantID.String(), "slug": strings.ToLower(slug)})
}

func (r *Registry) GetDefaultOrg(ctx context.Context, tenantID uuid.UUID) (*tenant.Org, error) {
	return r.findOrg(ctx, bson.M{"tenant_id": tenantID.String(), "is_default": true})
}

func (r *Registry) GetTenantDatabaseConfig(ctx context.Context, tenantID uuid.UUID) (*tenant.DatabaseConfig, error) {
	var doc dbConfigDoc
	err := r.find(ctx, DatabaseConfigsCollection, bson.M{"_id": tenantID.String()}, &doc, tenant.ErrDatabaseConfigNotFound)
	if err != nil {
		return nil, err
	}
	return &tenant.DatabaseConfig{
		TenantID:   tenantID,
		Ciphertext: doc.Ciphertext,
		KeySalt:    doc.KeySalt,
	}, nil
}

// EnsureIndexes creates the unique lookups the registry queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	tenants := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "domains.host", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := db.Collection(TenantsCollection).Indexes().CreateMany(ctx, tenants); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}

	orgs := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "is_default", Value: 1}}},
	}
	if _, err := db.Collection(OrgsCollection).Indexes().CreateMany(ctx, orgs); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

var _ tenant.Registry = (*Registry)(nil)
