package store

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Acessores tolerantes a tipo: documentos vêm do BSON com tipos variados
// (int32/int64, DateTime, ObjectID), e o dublê de memória guarda tipos Go
// nativos. Campo ausente ou de tipo inesperado devolve o zero.

func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case bson.ObjectID:
		return v.Hex()
	}
	return ""
}

func (d Document) Int(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (d Document) Bool(key string) bool {
	v, _ := d[key].(bool)
	return v
}

func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case bson.DateTime:
		return v.Time()
	}
	return time.Time{}
}
