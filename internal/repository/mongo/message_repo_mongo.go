package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

const messageCollection = "messages"

type messageDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Type        string             `bson:"type"`
	SenderID    string             `bson:"senderId"`
	SenderName  *string            `bson:"senderName,omitempty"`
	RecipientID *string            `bson:"recipientId,omitempty"`
	OTP         *string            `bson:"otp,omitempty"`
	Status      string             `bson:"status"`
	Timestamp   time.Time          `bson:"timestamp"`
	ExpiresAt   *time.Time         `bson:"expiresAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   *time.Time         `bson:"updatedAt,omitempty"`
}

func (d messageDocument) toDomain() domain.Message {
	return domain.Message{
		ID:          d.ID.Hex(),
		Type:        domain.MessageType(d.Type),
		SenderID:    d.SenderID,
		SenderName:  d.SenderName,
		RecipientID: d.RecipientID,
		OTP:         d.OTP,
		Status:      domain.MessageStatus(d.Status),
		Timestamp:   d.Timestamp,
		ExpiresAt:   d.ExpiresAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MessageRepository keeps relay messages in a single collection. Ids are
// ObjectID hex strings.
type MessageRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMessageRepo(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		coll: db.Collection(messageCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Connect dials uri and pings the primary before returning the database handle.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(database), nil
}

func (r *MessageRepository) Create(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	msg, ok := msg.ForStorage()
	if !ok {
		return nil, ports.ErrValidation
	}

	doc := messageDocument{
		ID:          primitive.NewObjectID(),
		Type:        string(msg.Type),
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		RecipientID: msg.RecipientID,
		OTP:         msg.OTP,
		Status:      string(msg.Status),
		Timestamp:   msg.Timestamp,
		ExpiresAt:   msg.ExpiresAt,
		CreatedAt:   r.now(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	out := doc.toDomain()
	return &out, nil
}

func (r *MessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Message{}
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc messageDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	out := doc.toDomain()
	return &out, nil
}

func (r *MessageRepository) UpdateByID(ctx context.Context, id string, patch domain.MessagePatch) (*domain.Message, error) {
	return r.update(ctx, id, patch, nil)
}

func (r *MessageRepository) UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if len(expected) == 0 {
		return nil, ports.ErrValidation
	}
	return r.update(ctx, id, patch, expected)
}

func (r *MessageRepository) update(ctx context.Context, id string, patch domain.MessagePatch, expected []domain.MessageStatus) (*domain.Message, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	if patch.Status != "" && !patch.Status.Valid() {
		return nil, ports.ErrValidation
	}

	filter := statusFilter(oid, expected)
	update := updateDocument(patch, r.now())

	var doc messageDocument
	err = r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		out := doc.toDomain()
		return &out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if expected == nil {
		return nil, ports.ErrNotFound
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ports.ErrConflict
}

// statusFilter matches the document by id and, for conditional updates, by
// one of the expected statuses.
func statusFilter(oid primitive.ObjectID, expected []domain.MessageStatus) bson.M {
	filter := bson.M{"_id": oid}
	if expected != nil {
		statuses := make([]string, 0, len(expected))
		for _, s := range expected {
			statuses = append(statuses, string(s))
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	return filter
}

// updateDocument renders patch as $set/$unset operators. A supplied code
// wins over ClearOTP.
func updateDocument(patch domain.MessagePatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}
	if patch.Status != "" {
		set["status"] = string(patch.Status)
	}
	switch {
	case patch.OTP != nil:
		set["otp"] = *patch.OTP
	case patch.ClearOTP:
		unset["otp"] = ""
	}
	if patch.RecipientID != nil {
		set["recipientId"] = *patch.RecipientID
	}
	if patch.ExpiresAt != nil {
		set["expiresAt"] = *patch.ExpiresAt
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, ports.ErrInvalidID
	}
	return oid, nil
}

var _ ports.MessageRepository = (*MessageRepository)(nil)
