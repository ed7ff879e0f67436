package store

var BuildFindingsInsert = buildFindingsInsert
