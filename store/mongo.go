package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// Mongo implementa Store sobre o MongoDB: change streams para Subscribe e
// transação de sessão para WriteAtomic.
type Mongo struct {
	client *mongo.Client
	dbName string
	log    *zap.Logger
}

func NewMongo(client *mongo.Client, dbName string, log *zap.Logger) *Mongo {
	return &Mongo{client: client, dbName: dbName, log: log}
}

func (m *Mongo) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

func (m *Mongo) runQuery(ctx context.Context, collection string, query Query) (Snapshot, error) {
	filter := bson.M{}
	if !query.UpdatedAfter.IsZero() {
		filter["last_updated"] = bson.M{"$gte": query.UpdatedAfter}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}})
	if query.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(query.Limit))
	}

	cursor, err := m.collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snapshot := Snapshot{}
	for cursor.Next(ctx) {
		doc := Document{}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		snapshot = append(snapshot, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Subscribe abre o change stream antes da consulta inicial para não perder
// eventos na janela entre os dois. Cada evento dispara uma reconsulta, e a
// lista completa é reemitida — o contrato é stream de snapshots, não de
// deltas.
func (m *Mongo) Subscribe(ctx context.Context, collection string, query Query) (<-chan Snapshot, func(), error) {
	changeStream, err := m.collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Snapshot, 1)

	go func() {
		defer close(ch)
		defer changeStream.Close(context.Background())

		snapshot, err := m.runQuery(subCtx, collection, query)
		if err != nil {
			m.log.Warn("consulta inicial da assinatura falhou",
				zap.String("collection", collection), zap.Error(err))
			return
		}
		select {
		case ch <- snapshot:
		case <-subCtx.Done():
			return
		}

		for changeStream.Next(subCtx) {
			snapshot, err := m.runQuery(subCtx, collection, query)
			if err != nil {
				m.log.Warn("reconsulta da assinatura falhou",
					zap.String("collection", collection), zap.Error(err))
				return
			}
			select {
			case ch <- snapshot:
			case <-subCtx.Done():
				return
			}
		}

		if err := changeStream.Err(); err != nil && subCtx.Err() == nil {
			m.log.Warn("change stream encerrado com erro",
				zap.String("collection", collection), zap.Error(err))
		}
	}()

	return ch, cancel, nil
}

func (m *Mongo) findByID(ctx context.Context, collection, id string) (Document, error) {
	doc := Document{}
	err := m.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Documentos antigos podem ter _id ObjectID em vez de string.
	objectID, idErr := bson.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, ErrNotFound
	}
	err = m.collection(collection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *Mongo) GetOne(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	return m.findByID(ctx, collection, id)
}

func (m *Mongo) applyWrite(ctx context.Context, w Write) error {
	collection, id, err := SplitPath(w.Path)
	if err != nil {
		return err
	}
	payload := w.Payload.Clone()
	payload["_id"] = id

	if w.Upsert {
		filter := bson.M{"_id": id}
		for field, want := range w.Guard {
			filter[field] = want
		}
		// Guard divergente em documento existente faz o upsert tentar
		// inserir um _id duplicado, que o índice rejeita.
		if w.Merge {
			set := bson.M{}
			for field, value := range w.Payload {
				if field == "_id" {
					continue
				}
				set[field] = value
			}
			_, err = m.collection(collection).UpdateOne(ctx, filter, bson.M{"$set": set},
				options.UpdateOne().SetUpsert(true))
		} else {
			_, err = m.collection(collection).ReplaceOne(ctx, filter, payload,
				options.Replace().SetUpsert(true))
		}
	} else {
		_, err = m.collection(collection).InsertOne(ctx, payload)
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrWriteConflict
	}
	return err
}

func (m *Mongo) WriteAtomic(ctx context.Context, writes []Write) error {
	// Escrita de um documento só já é atômica, com ou sem replica set.
	if len(writes) == 1 {
		return m.applyWrite(ctx, writes[0])
	}

	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		for _, w := range writes {
			if err := m.applyWrite(txCtx, w); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil && transactionsUnsupported(err) {
		return ErrAtomicUnsupported
	}
	return err
}

// transactionsUnsupported reconhece a recusa de deployments standalone, que
// não têm transações multi-documento.
func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

func (m *Mongo) Append(ctx context.Context, collection string, payload Document) (string, error) {
	doc := payload.Clone()
	id := bson.NewObjectID().Hex()
	doc["_id"] = id

	if _, err := m.collection(collection).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Mongo) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	_, err = m.collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}
