// Package models holds the gorm persistence models and their conversion to
// and from domain aggregates. Models never carry behaviour; derived amounts
// are stored for listing and reporting but re-derived from line inputs
// whenever a full aggregate is loaded.
package models
