package main

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	patientsCollection   = "patients"
	dictionaryCollection = "diagnosis_dictionary"
)

// docSink is where assembled documents go.
type docSink interface {
	// Reset drops both collections so every run rebuilds them from scratch.
	Reset(ctx context.Context) error
	InsertDictionary(ctx context.Context, docs []DictionaryDoc) error
	InsertPatients(ctx context.Context, docs []PatientDoc) error
	EnsureIndexes(ctx context.Context) error
}

// mongoSink writes documents to a MongoDB database.
type mongoSink struct {
	client *mongo.Client
	db     *mongo.Database
}

func newMongoSink(ctx context.Context, uri, database string) (*mongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &mongoSink{client: client, db: client.Database(database)}, nil
}

func (m *mongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *mongoSink) Reset(ctx context.Context) error {
	for _, name := range []string{patientsCollection, dictionaryCollection} {
		if err := m.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

func (m *mongoSink) InsertDictionary(ctx context.Context, docs []DictionaryDoc) error {
	return insertMany(ctx, m.db.Collection(dictionaryCollection), docs)
}

func (m *mongoSink) InsertPatients(ctx context.Context, docs []PatientDoc) error {
	return insertMany(ctx, m.db.Collection(patientsCollection), docs)
}

func insertMany[T any](ctx context.Context, coll *mongo.Collection, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	if _, err := coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func (m *mongoSink) EnsureIndexes(ctx context.Context) error {
	patientIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "patientId", Value: 1}}},
		{Keys: bson.D{{Key: "admissions.admissionId", Value: 1}}},
		{Keys: bson.D{{Key: "admissions.admitTime", Value: 1}}},
		{Keys: bson.D{{Key: "admissions.diagnoses.icdCode", Value: 1}}},
		{Keys: bson.D{{Key: "admissions.notes.noteTime", Value: 1}}},
	}
	if _, err := m.db.Collection(patientsCollection).Indexes().CreateMany(ctx, patientIndexes); err != nil {
		return fmt.Errorf("create %s indexes: %w", patientsCollection, err)
	}

	dictionaryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "icdCode", Value: 1}, {Key: "icdVersion", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.db.Collection(dictionaryCollection).Indexes().CreateOne(ctx, dictionaryIndex); err != nil {
		return fmt.Errorf("create %s index: %w", dictionaryCollection, err)
	}
	return nil
}
