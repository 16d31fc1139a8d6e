package models

import "time"

// Version - неизменяемый снимок содержимого документа.
// Записи только добавляются; единственное поле, которое меняется после
// создания - DeliveryHandle, и только один раз (кэшированный идентификатор
// файла на стороне шлюза доставки, чтобы не перезаливать те же байты).
// Текущей версией документа считается запись с максимальным CreatedAt,
// отдельный указатель "latest" не хранится.
type Version struct {
	ID             int64     `db:"id" json:"id"`
	NodeID         int64     `db:"node_id" json:"node_id"`
	Label          string    `db:"version" json:"version"` // произвольная метка, монотонность не требуется
	ObjectKey      string    `db:"object_key" json:"object_key"`
	Author         string    `db:"author" json:"author"`
	DeliveryHandle *string   `db:"delivery_handle" json:"delivery_handle,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
