// Package value implements the registry value codec: conversion between the
// raw byte payloads the OS hands back and the typed Value model in pkg/types.
//
// Both directions are total. Decode never rejects input: truncated integers
// degrade to zero, malformed strings decode to whatever code units are
// present, and unknown types pass through as raw bytes. Real registries
// contain corrupted data and a scanner has to tolerate all of it.
package value
