package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

const collectionCollaborators = "collaborators"

// CollaboratorRepository reads the collaborator collection owned by the
// business modules. Ids are stored as plain strings in _id.
type CollaboratorRepository struct {
	col *mongo.Collection
}

func NewCollaboratorRepository(db *mongo.Database) *CollaboratorRepository {
	return &CollaboratorRepository{col: db.Collection(collectionCollaborators)}
}

type mongoCollaborator struct {
	ID      string `bson:"_id"`
	Name    string `bson:"name"`
	Company string `bson:"company,omitempty"`
	Color   string `bson:"color,omitempty"`
}

func (m mongoCollaborator) toDomain() *domain.Collaborator {
	return &domain.Collaborator{ID: m.ID, Name: m.Name, Company: m.Company, Color: m.Color}
}

func (r *CollaboratorRepository) FindByID(ctx context.Context, id string) (*domain.Collaborator, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCollaborator
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find collaborator: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CollaboratorRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, bson.M{})
}

func (r *CollaboratorRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	return r.ids(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *CollaboratorRepository) ids(ctx context.Context, filter bson.M) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list collaborator ids: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode collaborator ids: %w", err)
	}

	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out, nil
}

// List applies the scope ids first, then the optional company and name filters.
func (r *CollaboratorRepository) List(ctx context.Context, f ports.CollaboratorFilter) ([]*domain.Collaborator, error) {
	if len(f.IDs) == 0 {
		return []*domain.Collaborator{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": f.IDs}}
	if f.Company != "" {
		filter["company"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Company) + "$", "$options": "i"}
	}
	if f.Search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoCollaborator
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode collaborators: %w", err)
	}

	out := make([]*domain.Collaborator, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

var _ ports.CollaboratorRepository = (*CollaboratorRepository)(nil)
