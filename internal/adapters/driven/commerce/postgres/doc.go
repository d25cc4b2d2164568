// Package postgres reads the authoritative commerce catalog from a
// WooCommerce-style PostgreSQL schema.
//
// Products live in {prefix}posts (post_type product or product_variation)
// and their attributes in {prefix}postmeta under the keys _sku, _price,
// _manage_stock and _stock. The adapter only ever reads.
package postgres
