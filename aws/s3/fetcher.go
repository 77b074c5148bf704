// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 fetches monthly filing archives from an S3 mirror bucket,
// as an alternative to the publisher's HTTP endpoint.
package s3

import (
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/fdngraph/ggk"
	"github.com/fdngraph/ggk/fetch"
	"github.com/pkg/errors"
)

// Fetcher downloads archive objects from one bucket. It provides the same
// contract as fetch.Fetcher: no partial file survives a failure, and a
// missing object is reported via fetch.ErrNotFound.
type Fetcher struct {
	Log   ggk.Logger
	Stats ggk.Statter

	bucket string
	s3     *s3.S3
	sess   *session.Session
}

// NewFetcher returns a Fetcher for the given region and bucket.
func NewFetcher(region, bucket string) (*Fetcher, error) {
	f := &Fetcher{
		Log:    ggk.NopLogger{},
		Stats:  ggk.NopStatter{},
		bucket: bucket,
	}
	var err error
	f.sess, err = session.NewSession(&aws.Config{
		Region: aws.String(region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	f.s3 = s3.New(f.sess)
	return f, nil
}

// Download streams the object at key to dest. A missing key maps to
// fetch.ErrNotFound; any other failure deletes the partial file and
// propagates. The written byte count is verified against the object's
// declared content length.
func (f *Fetcher) Download(key, dest string) (n int64, err error) {
	result, err := f.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return 0, errors.Wrapf(fetch.ErrNotFound, "s3://%v/%v", f.bucket, key)
		}
		return 0, errors.Wrapf(err, "fetching %v", key)
	}
	defer result.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %v", dest)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dest)
		}
	}()

	n, err = io.Copy(out, result.Body)
	if err != nil {
		return 0, errors.Wrapf(err, "streaming %v", key)
	}
	f.Stats.Count("fetch.bytes", n, 1)
	if err = out.Close(); err != nil {
		return 0, errors.Wrapf(err, "closing %v", dest)
	}
	if result.ContentLength != nil && n != *result.ContentLength {
		err = errors.Errorf("size mismatch for %v: wrote %d bytes, declared %d", key, n, *result.ContentLength)
		os.Remove(dest)
		return 0, err
	}
	f.Log.Debugf("downloaded s3://%v/%v (%d bytes)", f.bucket, key, n)
	return n, nil
}
