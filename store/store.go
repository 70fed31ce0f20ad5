package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indica documento inexistente no caminho pedido.
	ErrNotFound = errors.New("documento não encontrado")

	// ErrAtomicUnsupported indica que o backend não consegue aplicar a lista
	// de escritas como unidade atômica. Quem chama precisa compensar.
	ErrAtomicUnsupported = errors.New("escrita atômica não suportada pelo backend")

	// ErrWriteConflict indica modificação concorrente detectada durante a
	// escrita atômica.
	ErrWriteConflict = errors.New("conflito de escrita concorrente")
)

// Document é um documento genérico do store, sem esquema fixo.
type Document map[string]any

// Snapshot é o conjunto-resultado completo de uma coleção assinada, já
// ordenado por last_updated decrescente.
type Snapshot []Document

// Query restringe o conjunto assinado/consultado. Filtros de negócio (ex.:
// status) ficam fora daqui de propósito: são aplicados depois do merge para
// que mudar o filtro não reassine streams.
type Query struct {
	UpdatedAfter time.Time
	Limit        int
}

// Write é uma escrita endereçada: Path no formato "colecao/docId". Sem
// Upsert a escrita é só-inserção e conflita com documento existente. Merge
// (só com Upsert) aplica apenas os campos do Payload e preserva o resto do
// documento — campos fora do Payload podem estar sendo escritos por outro
// dono e não devem ser rebobinados. Guard (só com Upsert) exige que os
// campos listados batam com o documento atual; divergência vira
// ErrWriteConflict — é como a troca de tier detecta um concorrente que
// mexeu no parceiro no meio do caminho.
type Write struct {
	Path    string
	Payload Document
	Upsert  bool
	Merge   bool
	Guard   Document
}

// Store é o contrato mínimo do banco de documentos particionado por
// parceiro. A camada de persistência concreta fica atrás dele; o core do
// console só conhece esta interface.
type Store interface {
	// Subscribe emite a lista-snapshot atual e uma nova lista a cada
	// mudança na coleção. O canal fecha quando a assinatura cai ou é
	// cancelada; reassinar é responsabilidade de quem consome.
	Subscribe(ctx context.Context, collection string, query Query) (<-chan Snapshot, func(), error)

	GetOne(ctx context.Context, path string) (Document, error)

	// WriteAtomic aplica todas as escritas ou nenhuma.
	WriteAtomic(ctx context.Context, writes []Write) error

	// Append insere na coleção e devolve o id gerado.
	Append(ctx context.Context, collection string, payload Document) (string, error)

	// Delete existe só para o rollback compensatório de triplas
	// meio-aplicadas.
	Delete(ctx context.Context, path string) error
}

func SplitPath(path string) (collection string, id string, err error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("caminho de documento inválido: %q", path)
	}
	return parts[0], parts[1], nil
}

func JoinPath(collection, id string) string {
	return collection + "/" + id
}

// Clone copia o documento um nível abaixo, o suficiente para evitar que
// snapshots compartilhem o mapa com o escritor.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
