package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

const collectionCredentials = "credentials"

type CredentialRepository struct {
	col *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{col: db.Collection(collectionCredentials)}
}

type mongoCredential struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Identifier             string             `bson:"identifier"`
	PasswordHash           string             `bson:"password_hash"`
	Role                   string             `bson:"role"`
	LinkedCollaboratorID   string             `bson:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string           `bson:"managed_collaborator_ids"`
	CreatedAt              int64              `bson:"created_at"`
	UpdatedAt              int64              `bson:"updated_at"`
}

func (m *mongoCredential) toDomain() *domain.Credential {
	managed := slices.Clone(m.ManagedCollaboratorIDs)
	slices.Sort(managed)
	if managed == nil {
		managed = []string{}
	}
	return &domain.Credential{
		ID:                     m.ID.Hex(),
		Identifier:             m.Identifier,
		PasswordHash:           m.PasswordHash,
		Role:                   domain.Role(m.Role),
		LinkedCollaboratorID:   m.LinkedCollaboratorID,
		ManagedCollaboratorIDs: managed,
		CreatedAt:              unixToTime(m.CreatedAt),
		UpdatedAt:              unixToTime(m.UpdatedAt),
	}
}

// EnsureIndexes creates the unique identifier index that backs duplicate detection.
func (r *CredentialRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	return err
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoCredential{
		Identifier:             cred.Identifier,
		PasswordHash:           cred.PasswordHash,
		Role:                   string(cred.Role),
		LinkedCollaboratorID:   cred.LinkedCollaboratorID,
		ManagedCollaboratorIDs: domain.NormalizeIDs(cred.ManagedCollaboratorIDs),
		CreatedAt:              cred.CreatedAt.Unix(),
		UpdatedAt:              cred.UpdatedAt.Unix(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert credential: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CredentialRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"identifier": identifier})
}

func (r *CredentialRepository) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCredential
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CredentialRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "identifier", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoCredential
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	out := make([]*domain.Credential, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *CredentialRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

// Update writes every field of the change and the managed-set diff in one
// pipeline update, so readers never observe a half-applied change.
func (r *CredentialRepository) Update(ctx context.Context, ch ports.CredentialChange) (*domain.Credential, error) {
	oid, err := primitive.ObjectIDFromHex(ch.ID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoCredential
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, updatePipeline(ch, time.Now().UTC()), opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("update credential: %w", err)
	}
	return doc.toDomain(), nil
}

// updatePipeline builds a single $set stage. Values are wrapped in $literal
// because pipeline stages treat strings starting with '$' as field paths.
func updatePipeline(ch ports.CredentialChange, now time.Time) mongo.Pipeline {
	set := bson.D{{Key: "updated_at", Value: literal(now.Unix())}}

	if ch.Identifier != nil {
		set = append(set, bson.E{Key: "identifier", Value: literal(*ch.Identifier)})
	}
	if ch.PasswordHash != nil {
		set = append(set, bson.E{Key: "password_hash", Value: literal(*ch.PasswordHash)})
	}
	if ch.Role != nil {
		set = append(set, bson.E{Key: "role", Value: literal(string(*ch.Role))})
	}
	if ch.LinkedCollaboratorID != nil {
		set = append(set, bson.E{Key: "linked_collaborator_id", Value: literal(*ch.LinkedCollaboratorID)})
	}
	if len(ch.Connect) > 0 || len(ch.Disconnect) > 0 {
		current := bson.M{"$ifNull": bson.A{"$managed_collaborator_ids", bson.A{}}}
		set = append(set, bson.E{Key: "managed_collaborator_ids", Value: bson.M{
			"$setUnion": bson.A{
				bson.M{"$setDifference": bson.A{current, literal(nonNil(ch.Disconnect))}},
				literal(nonNil(ch.Connect)),
			},
		}})
	}

	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func literal(v any) bson.M { return bson.M{"$literal": v} }

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) SwapPasswordHash(ctx context.Context, id, expected, next string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "password_hash": expected},
		bson.M{"$set": bson.M{"password_hash": next, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return false, fmt.Errorf("swap password hash: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)
