package domain

// KeyPrefix is the default prefix for all picmap keys in Redis/Valkey.
const KeyPrefix = "picmap:"
