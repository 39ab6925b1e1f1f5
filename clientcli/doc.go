// Package clientcli provides a client library for an itemgate server.
//
// A Client acts for one owner: it uploads items through the multipart
// form route, fetches any presentation of an item, and lists the owner's
// items. Every item call carries the configured token as a Bearer
// credential. Profiles stored in a YAML file let the CLI switch between
// gateways and owners.
//
// # Basic Usage
//
//	cfg := &clientcli.Config{
//		Endpoint:  "http://localhost:4173/file_api",
//		OwnerName: "alice",
//		OwnerID:   "42",
//		Token:     "your-token",
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./photo.png",
//	})
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
