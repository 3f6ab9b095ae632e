package postgres

var StorableText = storableText
