// Package commands содержит команды cartctl: локальная корзина поверх файлового хранилища.
//
// Каждая команда открывает корзину сессии, выполняет одну операцию,
// печатает уведомления и состояние корзины и дожидается записи снимка на диск.
package commands
