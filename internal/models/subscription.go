package models

import "time"

// Subscription - прямая подписка пользователя на узел дерева.
// Хранится только узел, на который пользователь подписался явно;
// "унаследованное" покрытие потомков вычисляется при запросе и
// нигде не материализуется.
type Subscription struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	NodeID    int64     `db:"node_id" json:"node_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
