package models

// NodeRef - краткая ссылка на узел для списков меню.
type NodeRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NodeView - представление раздела для навигации: хлебные крошки,
// подразделы и документы раздела.
type NodeView struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	Breadcrumb    []string  `json:"breadcrumb"` // заголовки предков от корня к узлу
	Subcategories []NodeRef `json:"subcategories"`
	Documents     []NodeRef `json:"documents"`
}

// DocumentView - представление документа с данными текущей версии.
// Поля версии пустые, если у документа еще нет публикаций.
type DocumentView struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	ParentID       *int64  `json:"parent_id,omitempty"`
	Version        *string `json:"version,omitempty"`
	Author         *string `json:"author,omitempty"`
	ObjectKey      *string `json:"object_key,omitempty"`
	DeliveryHandle *string `json:"delivery_handle,omitempty"`
	Equipment      *string `json:"equipment,omitempty"`
}

// SearchResult - элемент результата поиска по документам.
type SearchResult struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ParentID *int64 `json:"parent_id,omitempty"`
}
