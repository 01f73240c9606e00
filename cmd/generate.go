package main

//go:generate echo "Generating SQLC files..."
//go:generate bash -c "export PATH=$$PATH:~/go/bin && sqlc generate -f ../storage/sqlc.yaml"
//go:generate echo "SQLC files generated"

//go:generate echo "Generating templ files..."
//go:generate bash -c "export PATH=$$PATH:~/go/bin && templ generate -path ../views"
//go:generate echo "templ files generated"

// Run `go generate ./...` from the project root after changing
// storage/queries, storage/migrations or any views/**/*.templ file.
