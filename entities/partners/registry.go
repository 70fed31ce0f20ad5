package partners

import (
	"context"
	"database/sql"
	"fmt"
)

// RegistryRow é a identidade de um parceiro no cadastro legado. Tier, cota e
// uso não moram aqui: vivem no documento de assinatura no MongoDB.
type RegistryRow struct {
	ID          string
	DisplayName string
	Active      bool
}

// Registry lista os parceiros conhecidos. A implementação de produção lê o
// ERP legado; os testes usam StaticRegistry.
type Registry interface {
	List(ctx context.Context) ([]RegistryRow, error)
	Get(ctx context.Context, partnerID string) (RegistryRow, error)
}

// LegacyRegistry lê o cadastro de parceiros direto do MySQL do ERP, do mesmo
// jeito que os pedidos antigos ainda são lidos de lá.
type LegacyRegistry struct {
	db *sql.DB
}

func NewLegacyRegistry(db *sql.DB) *LegacyRegistry {
	return &LegacyRegistry{db: db}
}

func (r *LegacyRegistry) List(ctx context.Context) ([]RegistryRow, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, nome, ativo FROM parceiros ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listando parceiros no MySQL legado: %w", err)
	}
	defer rows.Close()

	result := []RegistryRow{}
	for rows.Next() {
		row := RegistryRow{}
		if err := rows.Scan(&row.ID, &row.DisplayName, &row.Active); err != nil {
			return nil, fmt.Errorf("lendo linha de parceiro: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("percorrendo linhas de parceiros: %w", err)
	}
	return result, nil
}

func (r *LegacyRegistry) Get(ctx context.Context, partnerID string) (RegistryRow, error) {
	row := RegistryRow{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, nome, ativo FROM parceiros WHERE id = ?", partnerID,
	).Scan(&row.ID, &row.DisplayName, &row.Active)

	if err == sql.ErrNoRows {
		return RegistryRow{}, ErrPartnerUnknown
	}
	if err != nil {
		return RegistryRow{}, fmt.Errorf("buscando parceiro no MySQL legado: %w", err)
	}
	return row, nil
}

// StaticRegistry é o dublê de testes do cadastro.
type StaticRegistry []RegistryRow

func (r StaticRegistry) List(ctx context.Context) ([]RegistryRow, error) {
	return r, nil
}

func (r StaticRegistry) Get(ctx context.Context, partnerID string) (RegistryRow, error) {
	for _, row := range r {
		if row.ID == partnerID {
			return row, nil
		}
	}
	return RegistryRow{}, ErrPartnerUnknown
}
