package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dnitsch/objstore-cli/internal/util"
)

const (
	DEMO_CONTENT_TYPE = "plain/text"
	demoTimeLayout    = "01/02/2006 at 15:04:05"
)

type DemoConfig struct {
	Bucket string
	Key    string
	// Now defaults to time.Now
	Now func() time.Time
}

// DemoPayload is the text uploaded by the demo
func DemoPayload(t time.Time) string {
	return fmt.Sprintf("Hello world on %s!", t.Format(demoTimeLayout))
}

// Demo creates the bucket and the file, reads it back, then removes both,
// listing the buckets or the bucket contents after each step.
func Demo(ctx context.Context, client Client, cfg DemoConfig, out io.Writer) error {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	d := &demo{client: client, cfg: cfg, out: out}

	steps := []func(context.Context) error{
		d.listBuckets,
		d.createBucketIfNotExists,
		d.listBuckets,
		d.uploadFileIfNotExists,
		d.listFolder,
		d.readFile,
		d.clearBucket,
		d.listFolder,
		d.deleteBucketIfExists,
		d.listBuckets,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

type demo struct {
	client Client
	cfg    DemoConfig
	out    io.Writer
}

func (d *demo) listBuckets(ctx context.Context) error {
	buckets, err := d.client.ListBuckets(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, "Buckets:")
	for _, b := range buckets {
		fmt.Fprintln(d.out, b)
	}
	return nil
}

func (d *demo) bucketExists(ctx context.Context) (bool, error) {
	util.Writeln("Checking if bucket '%s' exists...", d.cfg.Bucket)
	return d.client.BucketExists(ctx, d.cfg.Bucket)
}

func (d *demo) createBucketIfNotExists(ctx context.Context) error {
	ok, err := d.bucketExists(ctx)
	if err != nil {
		return err
	}
	if ok {
		util.Writeln("Bucket '%s' exists", d.cfg.Bucket)
		return nil
	}
	util.Writeln("Creating bucket '%s' ...", d.cfg.Bucket)
	return d.client.CreateBucket(ctx, d.cfg.Bucket)
}

func (d *demo) deleteBucketIfExists(ctx context.Context) error {
	ok, err := d.bucketExists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		util.Writeln("Bucket '%s' does not exist", d.cfg.Bucket)
		return nil
	}
	util.Writeln("Deleting bucket '%s' ...", d.cfg.Bucket)
	return d.client.DeleteBucket(ctx, d.cfg.Bucket)
}

func (d *demo) uploadFileIfNotExists(ctx context.Context) error {
	util.Writeln("Checking if file '%s' exists in bucket '%s'", d.cfg.Key, d.cfg.Bucket)
	ok, err := d.client.ObjectExists(ctx, d.cfg.Bucket, d.cfg.Key)
	if err != nil {
		return err
	}
	if ok {
		util.Writeln("File '%s' exists in bucket '%s'", d.cfg.Key, d.cfg.Bucket)
		return nil
	}

	data := DemoPayload(d.cfg.Now())
	util.Writeln("Uploading '%s' to '%s' with data: %s", d.cfg.Key, d.cfg.Bucket, data)
	return d.client.PutObject(ctx, d.cfg.Bucket, d.cfg.Key, []byte(data), DEMO_CONTENT_TYPE)
}

func (d *demo) listFolder(ctx context.Context) error {
	keys, err := d.client.ListObjects(ctx, d.cfg.Bucket)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Listing bucket '%s':\n", d.cfg.Bucket)
	for _, k := range keys {
		fmt.Fprintln(d.out, k)
	}
	return nil
}

func (d *demo) readFile(ctx context.Context) error {
	util.Writeln("Reading file '%s' from bucket '%s'", d.cfg.Key, d.cfg.Bucket)
	data, err := d.client.GetObject(ctx, d.cfg.Bucket, d.cfg.Key)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Data:\n%s\n", data)
	return nil
}

func (d *demo) clearBucket(ctx context.Context) error {
	util.Writeln("Cleaning all from bucket '%s'..", d.cfg.Bucket)
	keys, err := d.client.ListObjects(ctx, d.cfg.Bucket)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := d.client.DeleteObject(ctx, d.cfg.Bucket, k); err != nil {
			return err
		}
	}
	return nil
}
