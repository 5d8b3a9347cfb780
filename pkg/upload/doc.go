// Package upload stores listing and profile images.
//
// The backend mounts Handler behind its auth middleware:
//
//	r.With(requireAuth).Post("/uploads", upload.Handler(store, cfg, logger).ServeHTTP)
//
// The handler reads a multipart "file" field, checks the detected MIME type
// against Config.AllowedTypes (the client's part header is never trusted),
// writes the bytes through a Store and answers with model.UploadResponse.
//
// Two stores ship with the package: DiskStore writes under a local directory
// and serves the files itself, S3Store puts objects into a bucket and returns
// URLs under a public base.
package upload
