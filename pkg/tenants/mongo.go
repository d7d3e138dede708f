// pkg/tenants/mongo.go
package tenants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections of the master database.
const (
	OrganizationsCollection = "organizations"
	AdminsCollection        = "admins"
	OperationsCollection    = "tenant_operations"
)

type organizationDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"organization_name"`
	CollectionName string    `bson:"collection_name"`
	AdminID        string    `bson:"admin_id"`
	CreatedAt      time.Time `bson:"created_at"`
}

func organizationDocOf(t Tenant) organizationDoc {
	return organizationDoc{ID: t.ID, Name: t.Name, CollectionName: t.CollectionName, AdminID: t.AdminID, CreatedAt: t.CreatedAt}
}

func (d organizationDoc) tenant() Tenant {
	return Tenant{ID: d.ID, Name: d.Name, CollectionName: d.CollectionName, AdminID: d.AdminID, CreatedAt: d.CreatedAt}
}

type adminDoc struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Password     string `bson:"password"`
	Role         string `bson:"role"`
	Organization string `bson:"organization"`
}

func adminDocOf(a Admin) adminDoc {
	return adminDoc{ID: a.ID, Email: a.Email, Password: a.PasswordHash, Role: a.Role, Organization: a.TenantName}
}

func (d adminDoc) admin() Admin {
	return Admin{ID: d.ID, Email: d.Email, PasswordHash: d.Password, Role: d.Role, TenantName: d.Organization}
}

type operationDoc struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	TenantID  string    `bson:"tenant_id"`
	Tenant    string    `bson:"tenant"`
	Target    string    `bson:"target,omitempty"`
	Stage     string    `bson:"stage"`
	StartedAt time.Time `bson:"started_at"`
}

func operationDocOf(op Operation) operationDoc {
	return operationDoc{ID: op.ID, Kind: op.Kind, TenantID: op.TenantID, Tenant: op.Tenant, Target: op.Target, Stage: op.Stage, StartedAt: op.StartedAt}
}

func (d operationDoc) operation() Operation {
	return Operation{ID: d.ID, Kind: d.Kind, TenantID: d.TenantID, Tenant: d.Tenant, Target: d.Target, Stage: d.Stage, StartedAt: d.StartedAt}
}

// writeErr maps a duplicate key error (unique index) to ErrAlreadyExists.
func writeErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

var organizationIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "organization_name", Value: 1}},
		Options: options.Index().SetName("uniq_organization_name").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "admin_id", Value: 1}},
		Options: options.Index().SetName("idx_admin_id"),
	},
}

var adminIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("idx_email"),
	},
}

// EnsureIndexes creates the master database indexes. The unique name index is what
// rejects the second of two racing inserts. Safe to call repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(OrganizationsCollection).Indexes().CreateMany(ctx, organizationIndexes); err != nil {
		return fmt.Errorf("organizations indexes: %w", err)
	}
	if _, err := db.Collection(AdminsCollection).Indexes().CreateMany(ctx, adminIndexes); err != nil {
		return fmt.Errorf("admins indexes: %w", err)
	}
	return nil
}

// MongoStore implements Registry, AdminStore and Journal on the master database.
type MongoStore struct {
	orgs   *mongo.Collection
	admins *mongo.Collection
	ops    *mongo.Collection
	log    *zap.SugaredLogger
}

// NewMongoStore constructs a MongoDB-backed store over the master database.
func NewMongoStore(db *mongo.Database, log *zap.SugaredLogger) *MongoStore {
	return &MongoStore{
		orgs:   db.Collection(OrganizationsCollection),
		admins: db.Collection(AdminsCollection),
		ops:    db.Collection(OperationsCollection),
		log:    log,
	}
}

func (s *MongoStore) Lookup(ctx context.Context, name string) (Tenant, error) {
	return s.findTenant(ctx, bson.M{"organization_name": name})
}

func (s *MongoStore) LookupID(ctx context.Context, id string) (Tenant, error) {
	return s.findTenant(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByAdmin(ctx context.Context, adminID string) (Tenant, error) {
	return s.findTenant(ctx, bson.M{"admin_id": adminID})
}

func (s *MongoStore) findTenant(ctx context.Context, filter bson.M) (Tenant, error) {
	var doc organizationDoc
	if err := s.orgs.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	return doc.tenant(), nil
}

func (s *MongoStore) Insert(ctx context.Context, t Tenant) error {
	_, err := s.orgs.InsertOne(ctx, organizationDocOf(t))
	return writeErr(err)
}

func (s *MongoStore) Rename(ctx context.Context, oldName, newName, newCollection string) (Tenant, error) {
	var doc organizationDoc
	err := s.orgs.FindOneAndUpdate(ctx,
		bson.M{"organization_name": oldName},
		bson.M{"$set": bson.M{"organization_name": newName, "collection_name": newCollection}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
		return doc.tenant(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return Tenant{}, ErrNotFound
	default:
		return Tenant{}, writeErr(err)
	}
}

func (s *MongoStore) Remove(ctx context.Context, name string) error {
	res, err := s.orgs.DeleteOne(ctx, bson.M{"organization_name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, a Admin) error {
	_, err := s.admins.InsertOne(ctx, adminDocOf(a))
	return writeErr(err)
}

func (s *MongoStore) Get(ctx context.Context, id string) (Admin, error) {
	return s.findAdmin(ctx, bson.M{"_id": id})
}

func (s *MongoStore) ListByEmail(ctx context.Context, email string) ([]Admin, error) {
	cur, err := s.admins.Find(ctx, bson.M{"email": email}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []adminDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Admin, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.admin())
	}
	return out, nil
}

func (s *MongoStore) findAdmin(ctx context.Context, filter bson.M) (Admin, error) {
	var doc adminDoc
	if err := s.admins.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Admin{}, ErrNotFound
		}
		return Admin{}, err
	}
	return doc.admin(), nil
}

func (s *MongoStore) SetTenantLink(ctx context.Context, id, tenant string) error {
	return s.updateAdmin(ctx, id, bson.M{"organization": tenant})
}

func (s *MongoStore) UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) error {
	set := bson.M{}
	if email != nil {
		set["email"] = *email
	}
	if passwordHash != nil {
		set["password"] = *passwordHash
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateAdmin(ctx, id, set)
}

func (s *MongoStore) updateAdmin(ctx context.Context, id string, set bson.M) error {
	res, err := s.admins.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.admins.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Begin(ctx context.Context, op Operation) (Operation, error) {
	op = prepareOperation(op)
	if _, err := s.ops.InsertOne(ctx, operationDocOf(op)); err != nil {
		return Operation{}, err
	}
	return op, nil
}

func (s *MongoStore) Advance(ctx context.Context, id, stage string) error {
	res, err := s.ops.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"stage": stage}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Finish(ctx context.Context, id string) error {
	_, err := s.ops.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) Pending(ctx context.Context) ([]Operation, error) {
	cur, err := s.ops.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []operationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Operation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.operation())
	}
	s.log.Debugw("journal pending", "count", len(out))
	return out, nil
}
