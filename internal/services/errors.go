package services

import "errors"

// Кастомные ошибки сервисного слоя. Обработчики транслируют их в HTTP-статусы,
// не раскрывая внутренних идентификаторов в телах ответов.
var (
	ErrNodeNotFound    = errors.New("узел не найден")
	ErrVersionNotFound = errors.New("версия документа не найдена")
	ErrInvalidParent   = errors.New("родительский узел не найден или не является папкой")
	ErrCycleDetected   = errors.New("перемещение создает цикл в дереве")
	ErrInvalidNode     = errors.New("операция неприменима к узлу этого типа")
)
