package models

import "time"

// Node - узел дерева контента. Папки и документы хранятся в одной таблице
// и различаются флагом IsFolder: у документа не бывает детей, но могут быть
// версии (см. Version).
type Node struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	ParentID    *int64    `db:"parent_id" json:"parent_id,omitempty"` // NULL для корневых узлов
	Order       int       `db:"order" json:"order"`
	IsFolder    bool      `db:"is_folder" json:"is_folder"`
	Visible     bool      `db:"visible" json:"visible"` // показывать ли узел конечным пользователям
	Description *string   `db:"description" json:"description,omitempty"`
	Equipment   *string   `db:"equipment" json:"equipment,omitempty"` // метка оборудования, опционально
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
