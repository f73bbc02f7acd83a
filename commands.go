package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/authflow"
	"github.com/ideafeed/ideafeed-cli/internal/poll"
	"github.com/ideafeed/ideafeed-cli/internal/tui"
)

func usage() {
	fmt.Fprint(os.Stderr, `usage: ideafeed <command> [flags]

Session:
  login -email <email> -password <password>
  register -name <name> -email <email> -password <password>
  login-google            browser-assisted Google sign-in
  logout
  whoami

Catalog:
  plans                   public plan catalog
  limits                  current account limits

Products and feeds:
  products                list products
  product-create -name <name> -description <text>
  feeds -product <id>     list generation runs for a product
  feed-start -product <id>
  feed-show <feed-id>
  feed-watch <feed-id>    watch a run until suggestions settle
  try -name <name> -description <text>
                          guest run for a brand new product

Content generation:
  article-start <suggestion-id>
  article-show <article-id>
  article-save <article-id> [-title <title>] [-content-file <path>]
  meme-start <suggestion-id>
  meme-image <meme-id> -o <path>
  slop-start <suggestion-id>
  slop-video <slop-id> -o <path>

Billing:
  checkout -plan <plan-id>
  billing-portal
`)
}

func dispatch(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("a command is required")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, client, rest)
	case "register":
		return cmdRegister(ctx, client, rest)
	case "login-google":
		return cmdLoginGoogle(ctx, client)
	case "logout":
		return client.Logout()
	case "whoami":
		return cmdWhoami(ctx, client)
	case "plans":
		return cmdPlans(ctx, client)
	case "limits":
		return cmdLimits(ctx, client)
	case "products":
		return cmdProducts(ctx, client)
	case "product-create":
		return cmdProductCreate(ctx, client, rest)
	case "feeds":
		return cmdFeeds(ctx, client, rest)
	case "feed-start":
		return cmdFeedStart(ctx, client, rest)
	case "feed-show":
		return cmdFeedShow(ctx, client, rest)
	case "feed-watch":
		return cmdFeedWatch(ctx, client, rest)
	case "try":
		return cmdTry(ctx, client, rest)
	case "article-start":
		return cmdArticleStart(ctx, client, rest)
	case "article-show":
		return cmdArticleShow(ctx, client, rest)
	case "article-save":
		return cmdArticleSave(ctx, client, rest)
	case "meme-start":
		return cmdMemeStart(ctx, client, rest)
	case "meme-image":
		return cmdMemeImage(ctx, client, rest)
	case "slop-start":
		return cmdSlopStart(ctx, client, rest)
	case "slop-video":
		return cmdSlopVideo(ctx, client, rest)
	case "checkout":
		return cmdCheckout(ctx, client, rest)
	case "billing-portal":
		return cmdBillingPortal(ctx, client)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdLogin(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	if err := client.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Println("logged in")
	return nil
}

func cmdRegister(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return errors.New("register requires -name, -email and -password")
	}

	if err := client.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Println("account created, logged in")
	return nil
}

func cmdLoginGoogle(ctx context.Context, client *api.Client) error {
	err := authflow.Login(ctx, client, authflow.Options{
		Prompt: func(callbackURL string) {
			fmt.Printf("Complete Google sign-in in your browser.\nCallback listener: %s\n", callbackURL)
		},
	})
	if err != nil {
		return err
	}
	fmt.Println("logged in with Google")
	return nil
}

func cmdWhoami(ctx context.Context, client *api.Client) error {
	if !client.IsAuthenticated() {
		fmt.Println("not logged in")
		return nil
	}

	user, err := client.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if expiry, ok := client.AccessTokenExpiry(); ok {
		fmt.Printf("session token expires %s\n", expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func cmdPlans(ctx context.Context, client *api.Client) error {
	plans, err := client.Plans(ctx)
	if err != nil {
		return err
	}

	for _, plan := range plans {
		fmt.Printf("%-12s $%d/mo  products=%s generations/day=%s articles/day=%s\n",
			plan.ID, plan.PriceUSD,
			formatLimit(plan.Limits.ProductsPerUser),
			formatLimit(plan.Limits.ContentGenerationsPerDay),
			formatLimit(plan.Limits.ArticlesPerDay))
	}
	return nil
}

func formatLimit(n int) string {
	if n < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func cmdLimits(ctx context.Context, client *api.Client) error {
	limits, err := client.MyLimits(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("plan: %s\n", limits.PlanID)
	fmt.Printf("products: %s\n", formatLimit(limits.Limits.ProductsPerUser))
	fmt.Printf("generations/day: %s\n", formatLimit(limits.Limits.ContentGenerationsPerDay))
	fmt.Printf("articles/day: %s\n", formatLimit(limits.Limits.ArticlesPerDay))
	return nil
}

func cmdProducts(ctx context.Context, client *api.Client) error {
	products, err := client.Products(ctx)
	if err != nil {
		return err
	}

	if len(products) == 0 {
		fmt.Println("no products yet; create one with product-create")
		return nil
	}
	for _, product := range products {
		line := fmt.Sprintf("%s  %s", product.ID, product.Name)
		if product.LatestFeed != nil {
			line += fmt.Sprintf("  (latest feed %s: %s)", product.LatestFeed.ID, product.LatestFeed.Status)
		}
		fmt.Println(line)
	}
	return nil
}

func cmdProductCreate(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("product-create", flag.ContinueOnError)
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "what the product does")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *description == "" {
		return errors.New("product-create requires -name and -description")
	}

	product, err := client.CreateProduct(ctx, *name, *description)
	if err != nil {
		return err
	}
	fmt.Printf("created product %s\n", product.ID)
	return nil
}

func cmdFeeds(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("feeds", flag.ContinueOnError)
	productID := fs.String("product", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return errors.New("feeds requires -product")
	}

	feeds, err := client.ProductFeeds(ctx, *productID)
	if err != nil {
		return err
	}
	for _, feed := range feeds {
		fmt.Printf("%s  %-14s %s\n", feed.ID, feed.Status, feed.CreatedOn)
	}
	return nil
}

func cmdFeedStart(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("feed-start", flag.ContinueOnError)
	productID := fs.String("product", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return errors.New("feed-start requires -product")
	}

	feedID, err := client.InitiateFeed(ctx, *productID)
	if err != nil {
		return err
	}
	fmt.Printf("feed %s started; follow it with: ideafeed feed-watch %s\n", feedID, feedID)
	return nil
}

func cmdFeedShow(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("feed-show requires a feed id")
	}

	feed, err := client.GetFeed(ctx, args[0])
	if err != nil {
		return err
	}
	printFeed(feed)
	return nil
}

func cmdFeedWatch(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("feed-watch requires a feed id")
	}
	feedID := args[0]

	var feed api.Feed
	err := tui.Run(ctx, "feed", feedID, func(ctx context.Context, send func(tui.JobUpdate)) error {
		var err error
		feed, err = client.WatchFeed(ctx, feedID, feedObserver(send))
		return err
	})
	if err != nil {
		return err
	}
	if feed.ID == "" {
		// the user stopped watching before the run settled
		return nil
	}

	printFeed(feed)
	return nil
}

func cmdTry(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("try", flag.ContinueOnError)
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "what the product does")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *description == "" {
		return errors.New("try requires -name and -description")
	}

	feedID, promptLogin, err := client.InitiateGuestFeed(ctx, *name, *description)
	if err != nil {
		return err
	}
	if promptLogin {
		fmt.Println("guest allowance used up: log in to generate more feeds")
	}

	return cmdFeedWatch(ctx, client, []string{feedID})
}

func printFeed(feed api.Feed) {
	fmt.Printf("feed %s: %s\n", feed.ID, feed.Status)
	if feed.Product != nil {
		fmt.Printf("product: %s\n", feed.Product.Name)
	}
	for _, step := range feed.Steps {
		fmt.Printf("  step %-20s %s\n", step.StepName, step.Status)
	}
	if feed.Partial {
		fmt.Println("partial view: log in to see every suggestion")
	}
	for _, suggestion := range feed.Suggestions {
		fmt.Printf("- [%s] %s (%s)\n", suggestion.ID, suggestion.Text, suggestion.Kind)
	}
}

func cmdArticleStart(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("article-start requires a suggestion id")
	}

	articleID, err := client.CreateArticle(ctx, args[0])
	if err != nil {
		return err
	}

	var article api.Article
	err = tui.Run(ctx, "article", articleID, func(ctx context.Context, send func(tui.JobUpdate)) error {
		var err error
		article, err = client.WatchArticle(ctx, articleID, articleObserver(send))
		return err
	})
	if err != nil || article.ID == "" {
		return err
	}

	fmt.Printf("article %s ready: %s\n", article.ID, article.Title)
	return nil
}

func cmdArticleShow(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("article-show requires an article id")
	}

	article, err := client.GetArticle(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("# %s (%s)\n\n", article.Title, article.Status)
	fmt.Println(article.ContentMD)
	return nil
}

func cmdArticleSave(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("article-save", flag.ContinueOnError)
	title := fs.String("title", "", "new title")
	contentFile := fs.String("content-file", "", "markdown file with the new body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("article-save requires an article id")
	}
	if *title == "" && *contentFile == "" {
		return errors.New("article-save requires -title or -content-file")
	}

	edit := api.ArticleEdit{Title: *title}
	if *contentFile != "" {
		raw, err := os.ReadFile(*contentFile)
		if err != nil {
			return fmt.Errorf("reading content file: %w", err)
		}
		content := string(raw)
		edit.ContentMD = &content
	}

	article, err := client.UpdateArticle(ctx, fs.Arg(0), edit)
	if err != nil {
		return err
	}
	fmt.Printf("saved article %s (%s)\n", article.ID, article.Status)
	return nil
}

func cmdMemeStart(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("meme-start requires a suggestion id")
	}

	memeID, err := client.CreateMeme(ctx, args[0])
	if err != nil {
		return err
	}

	var meme api.Meme
	err = tui.Run(ctx, "meme", memeID, func(ctx context.Context, send func(tui.JobUpdate)) error {
		var err error
		meme, err = client.WatchMeme(ctx, memeID, memeObserver(send))
		return err
	})
	if err != nil || meme.ID == "" {
		return err
	}

	fmt.Printf("meme %s ready: %s\n", meme.ID, meme.Concept)
	fmt.Printf("download it with: ideafeed meme-image %s -o meme.png\n", meme.ID)
	return nil
}

func cmdMemeImage(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("meme-image", flag.ContinueOnError)
	output := fs.String("o", "", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *output == "" {
		return errors.New("meme-image requires a meme id and -o")
	}

	raw, err := client.MemeImage(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, raw, 0o644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *output, len(raw))
	return nil
}

func cmdSlopStart(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("slop-start requires a suggestion id")
	}

	slopID, err := client.CreateSlop(ctx, args[0])
	if err != nil {
		return err
	}

	var slop api.Slop
	err = tui.Run(ctx, "video", slopID, func(ctx context.Context, send func(tui.JobUpdate)) error {
		var err error
		slop, err = client.WatchSlop(ctx, slopID, slopObserver(send))
		return err
	})
	if err != nil || slop.ID == "" {
		return err
	}

	fmt.Printf("video %s ready: %s\n", slop.ID, slop.Concept)
	fmt.Printf("download it with: ideafeed slop-video %s -o video.mp4\n", slop.ID)
	return nil
}

func cmdSlopVideo(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("slop-video", flag.ContinueOnError)
	output := fs.String("o", "", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *output == "" {
		return errors.New("slop-video requires a slop id and -o")
	}

	raw, err := client.SlopVideo(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, raw, 0o644); err != nil {
		return fmt.Errorf("writing video: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *output, len(raw))
	return nil
}

func cmdCheckout(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	planID := fs.String("plan", "", "plan id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return errors.New("checkout requires -plan")
	}

	result, err := client.CreateCheckout(ctx, *planID)
	if err != nil {
		return err
	}
	if result.URL != "" {
		fmt.Printf("complete payment at: %s\n", result.URL)
	} else {
		fmt.Println(result.Success)
	}
	return nil
}

func cmdBillingPortal(ctx context.Context, client *api.Client) error {
	result, err := client.CreatePortal(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("manage billing at: %s\n", result.URL)
	return nil
}

// Observers translating poll snapshots into display updates.

func feedObserver(send func(tui.JobUpdate)) poll.Observer[api.Feed] {
	return func(snap poll.Snapshot[api.Feed]) {
		detail := make([]string, 0, len(snap.Result.Steps)+1)
		for _, step := range snap.Result.Steps {
			detail = append(detail, fmt.Sprintf("%-20s %s", step.StepName, step.Status))
		}
		if n := len(snap.Result.Suggestions); n > 0 {
			detail = append(detail, fmt.Sprintf("%d suggestions so far", n))
		}
		send(tui.JobUpdate{
			Kind:     "feed",
			ID:       snap.ID,
			Status:   snap.Status,
			Attempts: snap.Attempts,
			Err:      transientErr(snap.Loading, snap.Err),
			Done:     !snap.Loading,
			Detail:   detail,
		})
	}
}

func articleObserver(send func(tui.JobUpdate)) poll.Observer[api.Article] {
	return func(snap poll.Snapshot[api.Article]) {
		var detail []string
		if snap.Result.Title != "" {
			detail = append(detail, snap.Result.Title)
		}
		send(tui.JobUpdate{
			Kind:     "article",
			ID:       snap.ID,
			Status:   snap.Status,
			Attempts: snap.Attempts,
			Err:      transientErr(snap.Loading, snap.Err),
			Done:     !snap.Loading,
			Detail:   detail,
		})
	}
}

func memeObserver(send func(tui.JobUpdate)) poll.Observer[api.Meme] {
	return func(snap poll.Snapshot[api.Meme]) {
		var detail []string
		if snap.Result.Concept != "" {
			detail = append(detail, snap.Result.Concept)
		}
		send(tui.JobUpdate{
			Kind:     "meme",
			ID:       snap.ID,
			Status:   snap.Status,
			Attempts: snap.Attempts,
			Err:      transientErr(snap.Loading, snap.Err),
			Done:     !snap.Loading,
			Detail:   detail,
		})
	}
}

func slopObserver(send func(tui.JobUpdate)) poll.Observer[api.Slop] {
	return func(snap poll.Snapshot[api.Slop]) {
		var detail []string
		if snap.Result.Concept != "" {
			detail = append(detail, snap.Result.Concept)
		}
		send(tui.JobUpdate{
			Kind:     "video",
			ID:       snap.ID,
			Status:   snap.Status,
			Attempts: snap.Attempts,
			Err:      transientErr(snap.Loading, snap.Err),
			Done:     !snap.Loading,
			Detail:   detail,
		})
	}
}

// transientErr suppresses the final error from the live view: terminal
// failures are reported once by the command itself, not per-tick.
func transientErr(loading bool, err error) error {
	if !loading {
		return nil
	}
	return err
}
